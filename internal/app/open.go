package app

import (
	"context"
	"fmt"
	"log/slog"

	gfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/identity/firebaseauth"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/remote/firestore"
	"github.com/roach88/storefront/internal/remote/sqlstore"
	"github.com/roach88/storefront/internal/store"
)

// Open builds the concrete dependencies named by cfg and constructs an App.
// The caller must Close the App. sink may be nil, in which case notices are
// logged.
func Open(ctx context.Context, cfg config.Config, sink notify.Sink, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = notify.LogSink{Logger: logger}
	}

	var closers []func() error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	device, err := store.Open(cfg.LocalDB, store.WithQuota(cfg.LocalQuotaBytes))
	if err != nil {
		return fail(fmt.Errorf("open device store: %w", err))
	}
	closers = append(closers, device.Close)

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var records remote.RecordStore
	switch cfg.Backend {
	case config.BackendFirestore:
		client, err := gfirestore.NewClient(ctx, cfg.FirestoreProject, clientOpts...)
		if err != nil {
			return fail(fmt.Errorf("firestore client (project=%s): %w", cfg.FirestoreProject, err))
		}
		closers = append(closers, client.Close)
		records = firestore.New(client)
	default:
		backend, err := store.Open(cfg.BackendDB)
		if err != nil {
			return fail(fmt.Errorf("open backend store: %w", err))
		}
		closers = append(closers, backend.Close)
		records = sqlstore.New(backend)
	}

	var feed Feed
	switch cfg.Auth {
	case config.AuthFirebase:
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirestoreProject}, clientOpts...)
		if err != nil {
			return fail(fmt.Errorf("firebase app: %w", err))
		}
		authClient, err := fbApp.Auth(ctx)
		if err != nil {
			return fail(fmt.Errorf("firebase auth: %w", err))
		}
		feed = firebaseauth.New(authClient, device, firebaseauth.WithLogger(logger.With("component", "auth")))
	default:
		feed = identity.NewLocalFeed(device,
			identity.WithSessionKey(cfg.SessionKey),
			identity.WithFeedLogger(logger),
		)
	}

	logger.Debug("dependencies opened", "backend", cfg.Backend, "auth", cfg.Auth, "local_db", cfg.LocalDB)

	return New(Deps{
		Device:  device,
		Records: records,
		Feed:    feed,
		Sink:    sink,
		Logger:  logger,
		Closers: reverse(closers),
	}, cfg), nil
}

func reverse(fns []func() error) []func() error {
	out := make([]func() error, len(fns))
	for i, fn := range fns {
		out[len(fns)-1-i] = fn
	}
	return out
}
