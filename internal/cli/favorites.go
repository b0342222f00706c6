package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewFavoritesCommand creates the favorites command and its subcommands.
func NewFavoritesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Inspect and change favorites",
		Long: `Inspect and change favorites.

Signed-out favorites live on this device. Signed-in favorites live on the
backend; a failed backend write is reported but the change stays visible
until the next load.

Examples:
  storefront favorites toggle p1
  storefront favorites list --format json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "toggle <product-id>",
		Short:         "Add or remove a favorite",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showFavorites, func(ctx context.Context, s *session) (string, error) {
				p, err := s.product(ctx, args[0])
				if err != nil {
					return "", err
				}
				s.app.Favorites.Toggle(ctx, p)
				return "", nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "Print favorites",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showFavorites, func(context.Context, *session) (string, error) {
				return "", nil
			})
		},
	})

	return cmd
}
