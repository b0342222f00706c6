// Package firebaseauth is an identity.Feed backed by Firebase ID tokens.
//
// Sign-in hands over an ID token obtained by the client; the token is verified
// with the Firebase Admin SDK and kept in device storage. The initial identity
// check re-verifies the stored token, so an expired or revoked token lands the
// user back at anonymous while an unreachable Firebase leaves the watcher in
// its degraded, backend-unreachable mode.
package firebaseauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"firebase.google.com/go/v4/auth"

	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/localstore"
)

// DefaultTokenKey is the device storage key of the stored ID token.
const DefaultTokenKey = "storefront.idToken"

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// IsRejected reports whether err means the token itself was rejected, as
// opposed to Firebase being unreachable.
func IsRejected(err error) bool {
	return auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err)
}

type storedToken struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

// Feed is an identity.Feed over Firebase Authentication.
type Feed struct {
	verifier TokenVerifier
	rejected func(error) bool
	ids      identity.IDGenerator
	token    *localstore.Value[storedToken]
	logger   *slog.Logger
	hub      identity.Hub

	mu sync.Mutex
}

var _ identity.Feed = (*Feed)(nil)

// Option configures a Feed.
type Option func(*Feed)

// WithIDGenerator overrides the UUIDv7 session id generator.
func WithIDGenerator(g identity.IDGenerator) Option {
	return func(f *Feed) { f.ids = g }
}

// WithRejectionCheck overrides IsRejected, for verifiers that are not the
// Firebase client.
func WithRejectionCheck(fn func(error) bool) Option {
	return func(f *Feed) { f.rejected = fn }
}

// WithLogger sets the feed logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// New creates a feed storing its token in storage under DefaultTokenKey.
func New(verifier TokenVerifier, storage localstore.Storage, opts ...Option) *Feed {
	f := &Feed{
		verifier: verifier,
		rejected: IsRejected,
		ids:      identity.UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.token = localstore.NewValue[storedToken](storage, DefaultTokenKey, f.logger)
	return f
}

// Current re-verifies the stored token. A rejected token clears it and
// reports anonymous; any other verification failure is returned.
func (f *Feed) Current(ctx context.Context) (identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.token.Load(ctx)
	if !ok || stored.Token == "" {
		return identity.Session{}, nil
	}

	tok, err := f.verifier.VerifyIDToken(ctx, stored.Token)
	if err != nil {
		if f.rejected(err) {
			f.logger.Info("stored ID token rejected; signing out", "error", err)
			f.token.Clear(ctx)
			return identity.Session{}, nil
		}
		return identity.Session{}, fmt.Errorf("verify stored id token: %w", err)
	}
	return identity.Session{UserID: tok.UID, SessionID: stored.SessionID}, nil
}

// Subscribe registers fn for feed events.
func (f *Feed) Subscribe(fn func(identity.Event)) func() {
	return f.hub.Subscribe(fn)
}

// SignIn verifies idToken and starts a session for its user.
func (f *Feed) SignIn(ctx context.Context, idToken string) (identity.Session, error) {
	if idToken == "" {
		return identity.Session{}, errors.New("sign in: empty id token")
	}

	tok, err := f.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return identity.Session{}, fmt.Errorf("sign in: %w", err)
	}

	f.mu.Lock()
	sess := identity.Session{UserID: tok.UID, SessionID: f.ids.Generate()}
	f.token.Save(ctx, storedToken{Token: idToken, SessionID: sess.SessionID})
	f.mu.Unlock()

	f.hub.Publish(identity.Event{Kind: identity.SignedIn, UserID: sess.UserID, SessionID: sess.SessionID})
	return sess, nil
}

// SignOut forgets the stored token.
func (f *Feed) SignOut(ctx context.Context) error {
	f.mu.Lock()
	prev, _ := f.token.Load(ctx)
	f.token.Clear(ctx)
	f.mu.Unlock()

	f.hub.Publish(identity.Event{Kind: identity.SignedOut, SessionID: prev.SessionID})
	return nil
}
