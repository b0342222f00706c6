package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// LocalDB and BackendDB override STOREFRONT_LOCAL_DB and
	// STOREFRONT_BACKEND_DB when set.
	LocalDB   string
	BackendDB string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the storefront CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront cart, favorites and session state",
		Long: `Drive the storefront client state from the command line.

Each invocation restores the device state (cart, favorites, session),
performs one action, waits for background sync to settle and prints the
resulting state. Configuration comes from STOREFRONT_* environment
variables.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LocalDB, "local-db", "", "device database path (overrides STOREFRONT_LOCAL_DB)")
	cmd.PersistentFlags().StringVar(&opts.BackendDB, "backend-db", "", "sqlite backend database path (overrides STOREFRONT_BACKEND_DB)")

	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewFavoritesCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewActivityCommand(opts))
	cmd.AddCommand(NewProductCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
