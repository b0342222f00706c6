// Package app is the composition root. It constructs the cart, favorites,
// identity and activity components once, wires identity changes into the
// engines, and tears everything down on Close.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roach88/storefront/internal/activity"
	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/favorites"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/localstore"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/shop"
)

// Feed is an auth provider the app can drive. identity.LocalFeed and
// firebaseauth.Feed satisfy it; the credential is a user id or an ID token
// respectively.
type Feed interface {
	identity.Feed
	SignIn(ctx context.Context, credential string) (identity.Session, error)
	SignOut(ctx context.Context) error
}

// Deps are the external collaborators of an App.
type Deps struct {
	Device  localstore.Storage
	Records remote.RecordStore
	Feed    Feed
	Sink    notify.Sink

	// Clock drives the activity monitor. Nil uses the wall clock.
	Clock clock.Clock

	// Now stamps remote associations. Nil uses time.Now.
	Now func() time.Time

	Logger *slog.Logger

	// Closers run in order on Close, after every component has stopped.
	Closers []func() error
}

// App holds the constructed components.
type App struct {
	Cart      *cart.Engine
	Favorites *favorites.Engine
	Watcher   *identity.Watcher
	Monitor   *activity.Monitor
	Remote    *remote.Favorites
	Feed      Feed

	logger  *slog.Logger
	closers []func() error

	cancel  context.CancelFunc
	runDone chan struct{}
	unsubs  []func()
}

// New constructs every component. Nothing runs until Start.
func New(deps Deps, cfg config.Config) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	remoteFavs := remote.NewFavorites(deps.Records,
		remote.WithProductCacheTTL(cfg.ProductCacheTTL),
		remote.WithNow(now),
		remote.WithLogger(logger.With("component", "remote")),
	)

	return &App{
		Cart: cart.New(
			localstore.NewList[shop.LineItem](deps.Device, cfg.CartKey, logger),
			deps.Sink,
			cart.WithLogger(logger.With("component", "cart")),
		),
		Favorites: favorites.New(
			localstore.NewList[shop.Product](deps.Device, cfg.FavoritesKey, logger),
			remoteFavs,
			deps.Sink,
			favorites.WithLogger(logger.With("component", "favorites")),
			favorites.WithRetry(favorites.RetryPolicy{
				Retries: cfg.WriteRetries,
				Min:     cfg.WriteBackoffMin,
				Max:     cfg.WriteBackoffMax,
			}),
		),
		Watcher: identity.NewWatcher(deps.Feed, identity.WithLogger(logger.With("component", "identity"))),
		Monitor: activity.New(
			localstore.NewValue[time.Time](deps.Device, cfg.ActivityKey, logger),
			deps.Feed,
			deps.Sink,
			activity.WithClock(clk),
			activity.WithCeiling(cfg.InactivityCeiling),
			activity.WithInterval(cfg.ActivityCheckInterval),
			activity.WithLogger(logger.With("component", "activity")),
		),
		Remote:  remoteFavs,
		Feed:    deps.Feed,
		logger:  logger,
		closers: deps.Closers,
	}
}

// Start loads the cart, starts the favorites writer, subscribes the engines
// to identity changes and runs the initial identity check.
func (a *App) Start(ctx context.Context) error {
	if a.cancel != nil {
		return errors.New("app already started")
	}

	a.Cart.Load(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.runDone = make(chan struct{})
	go func() {
		defer close(a.runDone)
		if err := a.Favorites.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("favorites writer stopped", "error", err)
		}
	}()

	a.unsubs = append(a.unsubs,
		a.Watcher.Subscribe(func(c identity.Change) { a.Favorites.OnIdentity(runCtx, c.Identity) }),
		a.Watcher.Subscribe(func(c identity.Change) { a.Monitor.OnIdentity(runCtx, c) }),
	)

	return a.Watcher.Start(ctx)
}

// Settle waits until favorites have loaded, queued remote writes have been
// attempted and forced sign-outs have completed.
func (a *App) Settle(ctx context.Context) error {
	if err := a.Favorites.Wait(ctx); err != nil {
		return err
	}
	a.Monitor.Drain()
	if err := a.Favorites.Wait(ctx); err != nil {
		return err
	}
	if err := a.Favorites.Flush(ctx); err != nil && !errors.Is(err, favorites.ErrClosed) {
		return err
	}
	return nil
}

// Close stops every component, drains queued favorite writes and runs the
// closers. It returns the first closer error.
func (a *App) Close() error {
	a.Watcher.Stop()
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil

	a.Monitor.Close()
	a.Monitor.Drain()
	a.Favorites.Close()

	if a.cancel != nil {
		<-a.runDone
		a.cancel()
	}

	closers := a.closers
	a.closers = nil

	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
