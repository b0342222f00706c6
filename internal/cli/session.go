package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/app"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/shop"
)

// settleTimeout bounds the wait for background loads and writes.
const settleTimeout = 30 * time.Second

// session is one command's running app.
type session struct {
	app     *app.App
	notices *notify.Recorder
	logger  *slog.Logger
}

// action runs against a settled app. The returned message is printed in
// text mode above the state section.
type action func(ctx context.Context, s *session) (message string, err error)

// runSession opens the app, lets it settle, runs fn, settles again and
// prints the resulting state.
func runSession(cmd *cobra.Command, opts *RootOptions, show section, fn action) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	msg, err := fn(ctx, s)
	if err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return WrapExitError(ExitFailure, "background sync did not finish", err)
	}

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return out.State(s.view(), msg, show)
}

func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level, _ := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	rec := &notify.Recorder{}
	var sink notify.Sink = rec
	if opts.Verbose {
		sink = notify.Multi{rec, notify.LogSink{Logger: logger}}
	}

	a, err := app.Open(ctx, cfg, sink, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open storefront", err)
	}
	s := &session{app: a, notices: rec, logger: logger}

	if err := a.Start(ctx); err != nil {
		s.close()
		return nil, WrapExitError(ExitFailure, "failed to start storefront", err)
	}
	if err := s.settle(ctx); err != nil {
		s.close()
		return nil, WrapExitError(ExitFailure, "startup did not settle", err)
	}
	return s, nil
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if opts.LocalDB != "" {
		cfg.LocalDB = opts.LocalDB
	}
	if opts.BackendDB != "" {
		cfg.BackendDB = opts.BackendDB
	}
	return cfg, cfg.Validate()
}

func (s *session) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	return s.app.Settle(ctx)
}

func (s *session) close() {
	if err := s.app.Close(); err != nil {
		s.logger.Warn("error closing storefront", "error", err)
	}
}

// product looks id up in the remote catalog.
func (s *session) product(ctx context.Context, id string) (shop.Product, error) {
	products, err := s.app.Remote.Products(ctx, []string{id})
	if err != nil {
		return shop.Product{}, WrapExitError(ExitFailure, "product lookup failed", err)
	}
	if len(products) == 0 {
		return shop.Product{}, NewExitError(ExitCommandError, fmt.Sprintf("product not found: %s", id))
	}
	return products[0], nil
}

// StateView is the printed state of the storefront.
type StateView struct {
	User            string          `json:"user,omitempty"`
	Cart            []shop.LineItem `json:"cart"`
	Totals          shop.Totals     `json:"totals"`
	Favorites       []shop.Product  `json:"favorites"`
	FavoritesSource string          `json:"favorites_source"`
	LastActivity    *time.Time      `json:"last_activity,omitempty"`
	Notices         []notify.Notice `json:"notices"`
}

func (s *session) view() StateView {
	a := s.app
	v := StateView{
		User:            a.Watcher.Identity().UserID,
		Cart:            a.Cart.Items(),
		Totals:          a.Cart.Totals(),
		Favorites:       a.Favorites.Items(),
		FavoritesSource: a.Favorites.State().String(),
		Notices:         s.notices.Notices(),
	}
	if last, ok := a.Monitor.LastActivity(); ok {
		v.LastActivity = &last
	}
	return v
}
