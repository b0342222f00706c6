package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/activity"
)

// ActivityTouchOptions holds flags for the activity touch command.
type ActivityTouchOptions struct {
	*RootOptions
	Kind string
}

// NewActivityCommand creates the activity command and its subcommands.
func NewActivityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Record interactions and check for inactivity",
		Long: `Record interactions and check for inactivity.

A signed-in session idle for longer than STOREFRONT_INACTIVITY_CEILING is
signed out. Every command checks this on startup; "activity check" runs
the check explicitly.

Examples:
  storefront activity touch --kind keydown
  storefront activity check`,
	}

	cmd.AddCommand(newActivityTouchCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:           "check",
		Short:         "Sign out if the session has been idle too long",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showAuth, func(ctx context.Context, s *session) (string, error) {
				switch {
				case !s.app.Monitor.Active():
					return "No active session", nil
				case s.app.Monitor.Check(ctx):
					return "Session expired", nil
				default:
					return "Session active", nil
				}
			})
		},
	})

	return cmd
}

func newActivityTouchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActivityTouchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "touch",
		Short:         "Record a user interaction",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := activity.Interaction(opts.Kind)
			if !kind.Qualifies() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be one of %v", opts.Kind, activity.Interactions))
			}
			return runSession(cmd, opts.RootOptions, showAuth, func(ctx context.Context, s *session) (string, error) {
				if !s.app.Monitor.Observe(ctx, kind) {
					return "No active session; activity ignored", nil
				}
				return "Activity recorded", nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", string(activity.Click), "interaction kind")

	return cmd
}
