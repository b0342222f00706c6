package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/storefront/internal/localstore"
)

// DefaultSessionKey is the device storage key of the LocalFeed session.
const DefaultSessionKey = "storefront.session"

// ErrNoSession is returned by UpdateUser when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// LocalFeed is a Feed whose session lives in device storage, so a sign-in
// survives process restarts.
type LocalFeed struct {
	hub     Hub
	session *localstore.Value[Session]
	ids     IDGenerator

	// mu orders read-modify-write of the stored session with its event.
	mu sync.Mutex
}

var _ Feed = (*LocalFeed)(nil)

// LocalFeedOption configures a LocalFeed.
type LocalFeedOption func(*localFeedConfig)

type localFeedConfig struct {
	key    string
	ids    IDGenerator
	logger *slog.Logger
}

// WithSessionKey overrides DefaultSessionKey.
func WithSessionKey(key string) LocalFeedOption {
	return func(c *localFeedConfig) { c.key = key }
}

// WithIDGenerator overrides the UUIDv7 session id generator.
func WithIDGenerator(g IDGenerator) LocalFeedOption {
	return func(c *localFeedConfig) { c.ids = g }
}

// WithFeedLogger sets the logger of the stored session slot.
func WithFeedLogger(l *slog.Logger) LocalFeedOption {
	return func(c *localFeedConfig) { c.logger = l }
}

// NewLocalFeed creates a feed persisted in storage.
func NewLocalFeed(storage localstore.Storage, opts ...LocalFeedOption) *LocalFeed {
	cfg := localFeedConfig{key: DefaultSessionKey, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LocalFeed{
		session: localstore.NewValue[Session](storage, cfg.key, cfg.logger),
		ids:     cfg.ids,
	}
}

// Current returns the stored session, or a zero Session.
func (f *LocalFeed) Current(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.session.Load(ctx)
	if !ok || sess.UserID == "" {
		return Session{}, nil
	}
	return sess, nil
}

// Subscribe registers fn for feed events.
func (f *LocalFeed) Subscribe(fn func(Event)) func() {
	return f.hub.Subscribe(fn)
}

// SignIn starts a new session for userID, replacing any existing one.
func (f *LocalFeed) SignIn(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, errors.New("sign in: empty user id")
	}

	f.mu.Lock()
	sess := Session{UserID: userID, SessionID: f.ids.Generate()}
	f.session.Save(ctx, sess)
	f.mu.Unlock()

	f.hub.Publish(Event{Kind: SignedIn, UserID: sess.UserID, SessionID: sess.SessionID})
	return sess, nil
}

// SignOut ends the stored session. Signing out while signed out still emits
// a signed_out event.
func (f *LocalFeed) SignOut(ctx context.Context) error {
	f.mu.Lock()
	prev, _ := f.session.Load(ctx)
	f.session.Clear(ctx)
	f.mu.Unlock()

	f.hub.Publish(Event{Kind: SignedOut, SessionID: prev.SessionID})
	return nil
}

// UpdateUser changes the user of the active session, keeping its session id.
func (f *LocalFeed) UpdateUser(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("update user: empty user id")
	}

	f.mu.Lock()
	sess, ok := f.session.Load(ctx)
	if !ok || sess.UserID == "" {
		f.mu.Unlock()
		return ErrNoSession
	}
	sess.UserID = userID
	f.session.Save(ctx, sess)
	f.mu.Unlock()

	f.hub.Publish(Event{Kind: UserUpdated, UserID: sess.UserID, SessionID: sess.SessionID})
	return nil
}
