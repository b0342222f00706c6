package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewAuthCommand creates the auth command and its subcommands.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and show the session",
		Long: `Sign in, sign out and show the session.

With STOREFRONT_AUTH=local the credential is a user id. With
STOREFRONT_AUTH=firebase it is a Firebase ID token.

Examples:
  storefront auth signin u1
  storefront auth status
  storefront auth signout`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "signin <credential>",
		Short:         "Start a session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showAuth, func(ctx context.Context, s *session) (string, error) {
				sess, err := s.app.Feed.SignIn(ctx, args[0])
				if err != nil {
					return "", WrapExitError(ExitFailure, "sign in failed", err)
				}
				return fmt.Sprintf("Session %s started", sess.SessionID), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "signout",
		Short:         "End the session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showAuth, func(ctx context.Context, s *session) (string, error) {
				if err := s.app.Feed.SignOut(ctx); err != nil {
					return "", WrapExitError(ExitFailure, "sign out failed", err)
				}
				return "", nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "status",
		Short:         "Show the signed-in user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, rootOpts, showAuth, func(context.Context, *session) (string, error) {
				return "", nil
			})
		},
	})

	return cmd
}
