package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/catalog"
	"storefront/internal/shopify"
)

// Flag values. Each command binds its own page size so defaults differ.
var (
	productsFirst    int
	collectionsFirst int
	searchFirst      int
	pageAfter        string
	query            string
)

// productsCmd lists products page by page
var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products",
	RunE:  runProducts,
}

// searchCmd prints search suggestions
var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search products by title or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

// productCmd shows one product and its variants
var productCmd = &cobra.Command{
	Use:   "product <handle>",
	Short: "Show a product and its variants",
	Args:  cobra.ExactArgs(1),
	RunE:  runProduct,
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections",
	RunE:  runCollections,
}

var menuCmd = &cobra.Command{
	Use:   "menu <handle>",
	Short: "Show a navigation menu with resolved links",
	Args:  cobra.ExactArgs(1),
	RunE:  runMenu,
}

func init() {
	productsCmd.Flags().IntVar(&productsFirst, "first", catalog.DefaultPageSize, "Page size")
	productsCmd.Flags().StringVar(&pageAfter, "after", "", "Cursor to continue from")
	productsCmd.Flags().StringVar(&query, "query", "", "Storefront search query")

	collectionsCmd.Flags().IntVar(&collectionsFirst, "first", catalog.DefaultPageSize, "Page size")
	collectionsCmd.Flags().StringVar(&pageAfter, "after", "", "Cursor to continue from")

	searchCmd.Flags().IntVar(&searchFirst, "first", catalog.SearchPageSize, "Maximum suggestions")
}

func runProducts(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	conn, err := e.session.Catalog().Products(e.ctx, shopify.ProductsParams{First: productsFirst, After: pageAfter, Query: query})
	if err != nil {
		return err
	}
	if !printResult(conn) {
		printProducts(conn)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	conn, err := e.session.Catalog().SearchProducts(e.ctx, args[0], searchFirst)
	if err != nil {
		return err
	}
	if printResult(conn) {
		return nil
	}
	if len(conn.Edges) == 0 {
		printInfo("no products match %q", args[0])
		return nil
	}
	printProducts(conn)
	return nil
}

func runProduct(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.session.Catalog().ProductByHandle(e.ctx, args[0])
	if err != nil {
		return err
	}
	if printResult(p) {
		return nil
	}

	fmt.Printf("%s%s%s\n", colorBold, p.Title, colorReset)
	if !quiet && p.Description != "" {
		fmt.Printf("  %s\n", p.Description)
	}
	if p.Variants == nil {
		return nil
	}
	for _, v := range p.Variants.Nodes() {
		status := colorGreen + "available" + colorReset
		if !v.AvailableForSale {
			status = colorRed + "sold out" + colorReset
		}
		fmt.Printf("  %s  %s  %s  %s\n", v.ID, v.Title, formatMoney(v.Price), status)
	}
	return nil
}

func runCollections(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	list, err := e.session.Catalog().Collections(e.ctx, shopify.PageParams{First: collectionsFirst, After: pageAfter})
	if err != nil {
		return err
	}
	if printResult(list) {
		return nil
	}
	for _, c := range list.Collections {
		marker := ""
		if !c.HasProducts {
			marker = colorGray + " (empty)" + colorReset
		}
		fmt.Printf("  %s%-30s%s %s%s\n", colorBold, c.Handle, colorReset, c.Title, marker)
	}
	return nil
}

func runMenu(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	nav, err := e.session.Catalog().Menu(e.ctx, args[0])
	if err != nil {
		return err
	}
	if !printResult(nav) {
		printNavItems(nav.Items, "  ")
	}
	return nil
}

func printNavItems(items []catalog.NavItem, indent string) {
	for _, it := range items {
		ext := ""
		if it.Link.IsExternal {
			ext = colorYellow + " ↗" + colorReset
		}
		fmt.Printf("%s%s  %s%s%s%s\n", indent, it.Title, colorGray, it.Link.Href, colorReset, ext)
		printNavItems(it.Items, indent+"  ")
	}
}
