package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/cart"
)

// CartAddOptions holds flags for the cart add command.
type CartAddOptions struct {
	*RootOptions
	Quantity int
	Size     string
	Color    string
}

// NewCartCommand creates the cart command and its subcommands.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the cart",
		Long: `Inspect and change the cart stored on this device.

Lines with the same product, size and color merge. Quantities below 1
become 1; use "cart remove" to delete a product.

Examples:
  storefront cart add p1 --quantity 2 --size M
  storefront cart qty p1 3
  storefront cart remove p1
  storefront cart show --format json`,
	}

	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartQuantityCommand(rootOpts))
	cmd.AddCommand(newCartClearCommand(rootOpts))
	cmd.AddCommand(newCartShowCommand(rootOpts))

	return cmd
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "add <product-id>",
		Short:         "Add a product to the cart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts.RootOptions, showCart, func(ctx context.Context, s *session) (string, error) {
				p, err := s.product(ctx, args[0])
				if err != nil {
					return "", err
				}
				s.app.Cart.Add(ctx, p, opts.Quantity, cart.WithSize(opts.Size), cart.WithColor(opts.Color))
				return "", nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Quantity, "quantity", "q", 1, "units to add")
	cmd.Flags().StringVar(&opts.Size, "size", "", "size variant")
	cmd.Flags().StringVar(&opts.Color, "color", "", "color variant")

	return cmd
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <product-id>",
		Short:         "Remove every line of a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showCart, func(ctx context.Context, s *session) (string, error) {
				if !s.app.Cart.Remove(ctx, args[0]) {
					return "", NewExitError(ExitFailure, fmt.Sprintf("product %s is not in the cart", args[0]))
				}
				return "", nil
			})
		},
	}
}

func newCartQuantityCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "qty <product-id> <quantity>",
		Short:         "Set the quantity of every line of a product",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "quantity must be an integer", err)
			}
			return runSession(cmd, rootOpts, showCart, func(ctx context.Context, s *session) (string, error) {
				if !s.app.Cart.UpdateQuantity(ctx, args[0], qty) {
					return "", NewExitError(ExitFailure, fmt.Sprintf("product %s is not in the cart", args[0]))
				}
				return "", nil
			})
		},
	}
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showCart, func(ctx context.Context, s *session) (string, error) {
				s.app.Cart.Clear(ctx)
				return "", nil
			})
		},
	}
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showCart, func(context.Context, *session) (string, error) {
				return "", nil
			})
		},
	}
}
