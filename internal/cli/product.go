package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/shop"
	"github.com/roach88/storefront/internal/syncerr"
)

// ProductAddOptions holds flags for the product add command.
type ProductAddOptions struct {
	*RootOptions
	Name  string
	Price int64
	Image string
}

// NewProductCommand creates the product command and its subcommands.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the backend product catalog",
		Long: `Manage the backend product catalog that cart and favorites refer to.

Prices are integer minor units (cents).

Examples:
  storefront product add p1 --name Shirt --price 1999
  storefront product show p1`,
	}

	cmd.AddCommand(newProductAddCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:           "show <product-id>",
		Short:         "Print a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showNone, func(ctx context.Context, s *session) (string, error) {
				p, err := s.product(ctx, args[0])
				if err != nil {
					return "", err
				}
				return describeProduct(p), nil
			})
		},
	})

	return cmd
}

func newProductAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "add <product-id>",
		Short:         "Add a product to the catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Name == "" {
				return NewExitError(ExitCommandError, "--name is required")
			}
			if opts.Price < 0 {
				return NewExitError(ExitCommandError, "--price must be non-negative")
			}
			p := shop.Product{ID: args[0], Name: opts.Name, Price: opts.Price, Image: opts.Image}

			return runSession(cmd, opts.RootOptions, showNone, func(ctx context.Context, s *session) (string, error) {
				err := s.app.Remote.PutProduct(ctx, p)
				switch {
				case syncerr.IsConflict(err):
					return "", NewExitError(ExitFailure, fmt.Sprintf("product already exists: %s", p.ID))
				case err != nil:
					return "", WrapExitError(ExitFailure, "failed to save product", err)
				}
				return "Saved " + describeProduct(p), nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "product name")
	cmd.Flags().Int64Var(&opts.Price, "price", 0, "price in minor units")
	cmd.Flags().StringVar(&opts.Image, "image", "", "image URL")

	return cmd
}

func describeProduct(p shop.Product) string {
	return fmt.Sprintf("%s  %s  %s", p.ID, p.Name, formatMoney(p.Price))
}
