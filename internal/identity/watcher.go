package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Watcher observes a Feed and reports identity changes to listeners.
//
// Changes are delivered one at a time, in the order the feed produced them.
// Listeners must not synchronously cause feed events from inside a callback;
// hand such work to a goroutine.
type Watcher struct {
	feed   Feed
	logger *slog.Logger

	// deliver serializes event handling end to end.
	deliver sync.Mutex

	mu          sync.Mutex
	current     Identity
	reachable   bool
	started     bool
	unsubscribe func()
	nextID      int
	listeners   []listener
}

type listener struct {
	id int
	fn func(Change)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher over feed. It does nothing until Start.
func NewWatcher(feed Feed, opts ...WatcherOption) *Watcher {
	w := &Watcher{feed: feed, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ErrStarted is returned by Start on a watcher that is already running.
var ErrStarted = errors.New("identity watcher already started")

// Start subscribes to the feed, performs the initial identity check and
// reports its outcome before any feed event.
//
// A failed check is not an error: the watcher reports an anonymous identity
// with BackendReachable false and keeps that flag for its lifetime.
func (w *Watcher) Start(ctx context.Context) error {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrStarted
	}
	w.started = true
	w.mu.Unlock()

	// Events published from here on wait on deliver and follow the initial
	// change, including sign-outs started by its listeners.
	unsub := w.feed.Subscribe(w.handle)
	w.mu.Lock()
	w.unsubscribe = unsub
	w.mu.Unlock()

	sess, err := w.feed.Current(ctx)
	reachable := err == nil
	if err != nil {
		w.logger.Warn("identity backend unreachable; continuing anonymously", "error", err)
		sess = Session{}
	}

	kind := Initial
	if sess.UserID != "" {
		kind = SessionRestored
	}

	w.mu.Lock()
	w.reachable = reachable
	w.mu.Unlock()

	w.apply(Change{
		Kind:      kind,
		SessionID: sess.SessionID,
		Identity:  Identity{UserID: sess.UserID, BackendReachable: reachable},
	})

	return nil
}

// Stop unsubscribes from the feed. Listeners stay registered but receive
// nothing further.
func (w *Watcher) Stop() {
	w.mu.Lock()
	unsub := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Identity returns the current identity.
func (w *Watcher) Identity() Identity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Subscribe registers fn for future changes and returns an idempotent
// unsubscribe func.
func (w *Watcher) Subscribe(fn func(Change)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.listeners = append(w.listeners, listener{id: id, fn: fn})

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, l := range w.listeners {
			if l.id == id {
				w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
				return
			}
		}
	}
}

func (w *Watcher) handle(e Event) {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	w.mu.Lock()
	next := Identity{UserID: e.UserID, BackendReachable: w.reachable}
	if e.Kind == SignedOut {
		next.UserID = ""
	}
	unchanged := next == w.current
	w.mu.Unlock()

	if e.Kind == UserUpdated && unchanged {
		w.logger.Debug("identity unchanged by user update", "user", e.UserID)
		return
	}

	w.apply(Change{Kind: e.Kind, SessionID: e.SessionID, Identity: next})
}

// apply records c.Identity as current and delivers c. Caller holds deliver.
func (w *Watcher) apply(c Change) {
	w.mu.Lock()
	c.Previous = w.current
	w.current = c.Identity
	listeners := make([]listener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Debug("identity changed", "kind", c.Kind, "user", c.Identity.UserID, "reachable", c.Identity.BackendReachable)
	for _, l := range listeners {
		l.fn(c)
	}
}
