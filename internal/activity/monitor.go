// Package activity enforces the inactivity ceiling of a signed-in session.
//
// The Monitor keeps one persisted timestamp of the last qualifying
// interaction. It compares that timestamp against the ceiling when a session
// is established or restored and then on a fixed interval while the session
// lasts. Past the ceiling it shows a notice and signs the user out; the
// enforcement is client side only.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/localstore"
	"github.com/roach88/storefront/internal/notify"
)

// Defaults.
const (
	DefaultCeiling  = 72 * time.Hour
	DefaultInterval = 5 * time.Minute
	DefaultStampKey = "storefront.lastActivity"
)

// MsgExpired is the notice shown before a forced sign-out.
const MsgExpired = "Your session expired due to inactivity. Please sign in again."

// Interaction is a user input kind.
type Interaction string

// Qualifying interactions.
const (
	PointerDown Interaction = "pointerdown"
	KeyDown     Interaction = "keydown"
	Scroll      Interaction = "scroll"
	TouchStart  Interaction = "touchstart"
	Click       Interaction = "click"
)

// Interactions lists every qualifying interaction.
var Interactions = []Interaction{PointerDown, KeyDown, Scroll, TouchStart, Click}

// Qualifies reports whether i counts as activity.
func (i Interaction) Qualifies() bool {
	switch i {
	case PointerDown, KeyDown, Scroll, TouchStart, Click:
		return true
	}
	return false
}

// SignOuter ends the current session. identity.LocalFeed and
// firebaseauth.Feed satisfy it.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// Monitor tracks activity of the current session. Safe for concurrent use.
type Monitor struct {
	clock    clock.Clock
	stamp    *localstore.Value[time.Time]
	signOut  SignOuter
	sink     notify.Sink
	logger   *slog.Logger
	ceiling  time.Duration
	interval time.Duration

	mu        sync.Mutex
	active    bool
	sessionID string
	expired   bool
	last      time.Time
	stopTick  chan struct{}
	tickDone  chan struct{}

	signOuts sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithCeiling sets the inactivity ceiling.
func WithCeiling(d time.Duration) Option {
	return func(m *Monitor) { m.ceiling = d }
}

// WithInterval sets the periodic check interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithLogger sets the monitor logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New creates an idle monitor. It becomes active on the first sign-in or
// restored session reported to OnIdentity.
func New(stamp *localstore.Value[time.Time], signOut SignOuter, sink notify.Sink, opts ...Option) *Monitor {
	m := &Monitor{
		clock:    clock.New(),
		stamp:    stamp,
		signOut:  signOut,
		sink:     sink,
		logger:   slog.Default(),
		ceiling:  DefaultCeiling,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnIdentity starts, checks or ends the tracked session.
func (m *Monitor) OnIdentity(ctx context.Context, c identity.Change) {
	switch {
	case c.Kind == identity.SignedOut:
		m.end()
		m.stamp.Clear(ctx)
	case c.Identity.Anonymous():
		m.end()
	case c.Kind == identity.SignedIn:
		m.begin(ctx, c.SessionID)
		m.Observe(ctx, Click)
	case c.Kind == identity.SessionRestored:
		m.begin(ctx, c.SessionID)
		if !m.Check(ctx) {
			m.Observe(ctx, Click)
		}
	}
}

// Observe records an interaction. Non-qualifying kinds and interactions
// outside a session are ignored. The stored timestamp never moves backwards.
func (m *Monitor) Observe(ctx context.Context, kind Interaction) bool {
	if !kind.Qualifies() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || m.expired {
		return false
	}
	if now := m.clock.Now(); now.After(m.last) {
		m.last = now
	}
	m.stamp.Save(ctx, m.last)
	return true
}

// Check compares the last activity with the ceiling and, when exceeded,
// notifies and starts an asynchronous sign-out. It reports whether the
// session expired. A session expires at most once.
func (m *Monitor) Check(ctx context.Context) bool {
	return m.check(ctx, "")
}

// check is Check limited to sessionID. An empty sessionID matches any
// session; a ticker passes its own so a tick of a replaced session is a no-op.
func (m *Monitor) check(ctx context.Context, sessionID string) bool {
	m.mu.Lock()
	if !m.active || m.expired || m.last.IsZero() || (sessionID != "" && sessionID != m.sessionID) {
		m.mu.Unlock()
		return false
	}
	idle := m.clock.Since(m.last)
	if idle <= m.ceiling {
		m.mu.Unlock()
		return false
	}
	m.expired = true
	session := m.sessionID
	m.mu.Unlock()

	m.logger.Info("session inactive past ceiling; signing out", "session", session, "idle", idle)
	notify.Send(ctx, m.sink, m.logger, notify.Notice{Severity: notify.Info, Message: MsgExpired})

	m.signOuts.Add(1)
	go func() {
		defer m.signOuts.Done()
		if err := m.signOut.SignOut(context.Background()); err != nil {
			m.logger.Warn("forced sign-out failed", "session", session, "error", err)
		}
	}()
	return true
}

// Active reports whether a session is being tracked.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastActivity returns the last recorded activity of the current session.
func (m *Monitor) LastActivity() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, !m.last.IsZero()
}

// Drain waits for forced sign-outs already started.
func (m *Monitor) Drain() {
	m.signOuts.Wait()
}

// Close stops tracking. The stored timestamp is kept.
func (m *Monitor) Close() {
	m.end()
}

func (m *Monitor) begin(ctx context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active && m.sessionID == sessionID {
		return
	}
	m.stopTickerLocked()

	m.active = true
	m.sessionID = sessionID
	m.expired = false
	m.last, _ = m.stamp.Load(ctx)

	stop, done := make(chan struct{}), make(chan struct{})
	m.stopTick, m.tickDone = stop, done
	go m.tick(m.clock.Ticker(m.interval), sessionID, stop, done)

	m.logger.Debug("activity session started", "session", sessionID, "last", m.last)
}

func (m *Monitor) end() {
	m.mu.Lock()
	wasActive := m.active
	m.active = false
	m.sessionID = ""
	m.last = time.Time{}
	stop, done := m.stopTick, m.tickDone
	m.stopTick, m.tickDone = nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if wasActive {
		m.logger.Debug("activity session ended")
	}
}

// stopTickerLocked stops the ticker of a session being replaced. The old
// goroutine exits on its own and is not waited for; a tick it already
// received is ignored by check.
func (m *Monitor) stopTickerLocked() {
	if m.stopTick == nil {
		return
	}
	close(m.stopTick)
	m.stopTick, m.tickDone = nil, nil
}

func (m *Monitor) tick(t *clock.Ticker, sessionID string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			m.check(context.Background(), sessionID)
		}
	}
}
