package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storefront/internal/shopify"
)

var addQuantity int

// cartCmd groups the cart subcommands
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and change the visitor's cart",
	Long: `Show and change the visitor's cart.

Available subcommands:
  show     - Print the cart lines and total (default)
  add      - Add a product variant
  update   - Change a line quantity; 0 removes the line
  remove   - Remove a line
  clear    - Start over with an empty cart
  checkout - Print the hosted checkout URL`,
	RunE: runCartShow,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cart",
	RunE:  runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <variant-id>",
	Short: "Add a product variant to the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartAdd,
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <line-id> <quantity>",
	Short: "Change the quantity of a cart line",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartUpdate,
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <line-id>",
	Short: "Remove a cart line",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartRemove,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Abandon the cart and start an empty one",
	RunE:  runCartClear,
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Print the hosted checkout URL",
	RunE:  runCartCheckout,
}

func init() {
	cartAddCmd.Flags().IntVar(&addQuantity, "qty", 1, "Quantity to add")
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd, cartCheckoutCmd)
}

// showCart prints the cart after a change.
func showCart(c *shopify.Cart) {
	if printResult(c) {
		return
	}
	if quiet {
		if c != nil {
			fmt.Println(c.TotalQuantity)
		}
		return
	}
	if c == nil {
		fmt.Printf("  %s(no cart)%s\n", colorGray, colorReset)
		return
	}
	printCart(c)
}

func runCartShow(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	showCart(e.session.Cart().Cart())
	return nil
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.session.Cart().AddLine(e.ctx, args[0], addQuantity); err != nil {
		return err
	}
	printSuccess("Added %d × %s", addQuantity, args[0])
	showCart(e.session.Cart().Cart())
	return nil
}

func runCartUpdate(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("quantity %q is not a number", args[1])
	}

	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.session.Cart().UpdateLine(e.ctx, args[0], qty); err != nil {
		return err
	}
	printSuccess("Line updated")
	showCart(e.session.Cart().Cart())
	return nil
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.session.Cart().RemoveLine(e.ctx, args[0]); err != nil {
		return err
	}
	printSuccess("Line removed")
	showCart(e.session.Cart().Cart())
	return nil
}

func runCartClear(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.session.Cart().Clear(e.ctx); err != nil {
		return err
	}
	printSuccess("Cart cleared")
	return nil
}

func runCartCheckout(cmd *cobra.Command, args []string) error {
	e, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	u, err := e.session.Cart().CheckoutURL(e.ctx)
	if err != nil {
		return err
	}
	if quiet {
		fmt.Println(u)
		return nil
	}
	printSuccess("Checkout ready")
	fmt.Printf("  %s%s%s\n", colorCyan, u, colorReset)
	return nil
}
