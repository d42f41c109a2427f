package main

import (
	"encoding/json"
	"fmt"
	"os"

	"storefront/internal/model"
	"storefront/internal/shopify"
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

// printResult prints v as indented JSON when --json is set and reports
// whether it did.
func printResult(v any) bool {
	if !jsonOutput {
		return false
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encoding result: %v", err)
	}
	fmt.Println(string(data))
	return true
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

// formatMoney renders a wire amount with its currency's scale, falling back
// to the raw strings when they do not parse.
func formatMoney(m shopify.Money) string {
	parsed, err := m.Parse()
	if err != nil {
		return m.Amount + " " + m.CurrencyCode
	}
	return parsed.String()
}

func printCart(c *shopify.Cart) {
	if c.IsEmpty() {
		fmt.Printf("  %s(empty)%s\n", colorGray, colorReset)
		return
	}
	for _, line := range c.LineItems() {
		fmt.Printf("  %s%s%s  %s × %d  %s\n",
			colorGray, line.ID, colorReset,
			line.Merchandise.Product.Title, line.Quantity,
			formatMoney(line.Cost.TotalAmount))
	}
	fmt.Printf("  Total: %s%s%s (%d items)\n", colorGreen, formatMoney(c.Cost.TotalAmount), colorReset, c.TotalQuantity)
}

func printProducts(conn *shopify.Connection[shopify.Product]) {
	for _, p := range conn.Nodes() {
		fmt.Printf("  %s%-30s%s %s  %s%s%s\n",
			colorBold, p.Handle, colorReset, p.Title,
			colorCyan, formatMoney(p.PriceRange.MinVariantPrice), colorReset)
	}
	if conn.PageInfo.HasNextPage && conn.PageInfo.EndCursor != nil {
		printInfo("more results: --after %s", *conn.PageInfo.EndCursor)
	}
}

// userMessage prefers the API error message over the wrapped chain.
func userMessage(err error) string {
	return model.Message(err)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
