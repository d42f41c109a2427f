package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/customer"
	"storefront/internal/locale"
	"storefront/internal/shopify"
)

var (
	password         string
	firstName        string
	lastName         string
	acceptsMarketing bool
	ordersFirst      int
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and attach the cart to the customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in customer",
	RunE:  runWhoami,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the customer's orders",
	RunE:  runOrders,
}

// localeCmd prints or changes the persisted language
var localeCmd = &cobra.Command{
	Use:   "locale [language]",
	Short: "Show or set the storefront language",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLocale,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&password, "password", "p", "", "Account password")
		c.MarkFlagRequired("password")
	}
	registerCmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	registerCmd.Flags().BoolVar(&acceptsMarketing, "accepts-marketing", false, "Opt in to marketing email")
	ordersCmd.Flags().IntVar(&ordersFirst, "first", 10, "Number of orders")
}

func printCustomer(c *shopify.Customer) {
	if printResult(c) {
		return
	}
	if c == nil {
		fmt.Println("not signed in")
		return
	}
	if quiet {
		fmt.Println(c.Email)
		return
	}
	fmt.Printf("  %s%s%s (%s)\n", colorBold, c.Email, colorReset, c.ID)
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	c, err := e.session.Login(e.ctx, args[0], password)
	if err != nil {
		return err
	}
	printSuccess("Signed in")
	printCustomer(c)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	c, err := e.session.Register(e.ctx, customer.RegisterInput{
		Email:            args[0],
		Password:         password,
		FirstName:        firstName,
		LastName:         lastName,
		AcceptsMarketing: acceptsMarketing,
	})
	if err != nil {
		return err
	}
	printSuccess("Account created")
	printCustomer(c)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.session.Logout(e.ctx); err != nil {
		return err
	}
	printSuccess("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	printCustomer(e.session.Customer().Customer())
	return nil
}

func runOrders(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	conn, err := e.session.Catalog().Orders(e.ctx, shopify.PageParams{First: ordersFirst})
	if err != nil {
		return err
	}
	if printResult(conn) {
		return nil
	}
	for _, o := range conn.Nodes() {
		fmt.Printf("  %s%s%s  %s  %s  %s\n",
			colorBold, o.Name, colorReset, o.ProcessedAt, o.FulfillmentStatus, formatMoney(o.TotalPrice))
	}
	return nil
}

func runLocale(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		language = args[0]
	}

	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	current := e.session.Locale()
	if quiet {
		fmt.Println(current)
		return nil
	}
	for _, info := range locale.Supported() {
		marker := "  "
		if info.Code == current {
			marker = colorGreen + "* " + colorReset
		}
		fmt.Printf("%s%s  %s\n", marker, info.Code, info.Label)
	}
	return nil
}
