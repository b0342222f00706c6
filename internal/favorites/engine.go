package favorites

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/localstore"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/shop"
)

// State is the backing mode of the favorites list.
type State int

const (
	Loading State = iota
	LocalBacked
	RemoteBacked
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case LocalBacked:
		return "local"
	case RemoteBacked:
		return "remote"
	default:
		return "unknown"
	}
}

// Notice messages emitted by Engine.
const (
	MsgAdded      = "Added to favorites"
	MsgRemoved    = "Removed from favorites"
	MsgLoadFailed = "Could not load your favorites; showing favorites saved on this device."
	MsgSaveFailed = "Could not save your favorites change. It may be missing next time you sign in."
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("favorites engine closed")

// Remote is the remote favorites adapter. *remote.Favorites satisfies it.
type Remote interface {
	FetchAll(ctx context.Context, userID string) ([]shop.Product, error)
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
}

// pendingToggle is a toggle made while Loading. gen is the load it was made
// under; zero means before the first identity.
type pendingToggle struct {
	product shop.Product
	desired bool
	gen     uint64
}

// Engine owns the visible favorites list. Safe for concurrent use.
type Engine struct {
	local  *localstore.List[shop.Product]
	remote Remote
	sink   notify.Sink
	logger *slog.Logger
	queue  *writeQueue
	retry  RetryPolicy

	life context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu          sync.Mutex
	state       State
	user        string
	items       []shop.Product
	index       mapset.Set[string]
	gen         uint64
	cancelFetch context.CancelFunc
	loaded      chan struct{}
	pending     []pendingToggle
}

// RetryPolicy bounds remote write retries. Attempts beyond the first are
// spaced by an exponential backoff between Min and Max.
type RetryPolicy struct {
	Retries int
	Min     time.Duration
	Max     time.Duration
}

// DefaultRetryPolicy is used unless WithRetry is given.
var DefaultRetryPolicy = RetryPolicy{Retries: 3, Min: 200 * time.Millisecond, Max: 5 * time.Second}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRetry sets the remote write retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

// New creates an engine in the Loading state. It leaves Loading on the first
// OnIdentity call. Remote writes are not performed until Run is called.
func New(local *localstore.List[shop.Product], remote Remote, sink notify.Sink, opts ...Option) *Engine {
	life, stop := context.WithCancel(context.Background())
	e := &Engine{
		local:  local,
		remote: remote,
		sink:   sink,
		logger: slog.Default(),
		queue:  newWriteQueue(),
		retry:  DefaultRetryPolicy,
		life:   life,
		stop:   stop,
		state:  Loading,
		items:  []shop.Product{},
		index:  mapset.NewThreadUnsafeSet[string](),
		loaded: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnIdentity selects the backend for id and reloads the list.
//
// Anonymous and backend-unreachable identities load the device list
// synchronously. A reachable signed-in identity enters Loading and fetches in
// the background; any earlier fetch is cancelled and its result discarded.
func (e *Engine) OnIdentity(ctx context.Context, id identity.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dropSupersededLocked()
	e.gen++
	if e.cancelFetch != nil {
		e.cancelFetch()
		e.cancelFetch = nil
	}

	if id.Anonymous() || !id.BackendReachable {
		e.user = ""
		e.setItems(e.local.Load(ctx))
		e.enter(LocalBacked)
		e.replayLocked(ctx)
		e.logger.Debug("favorites local-backed", "user", id.UserID, "reachable", id.BackendReachable, "count", len(e.items))
		return
	}

	e.user = id.UserID
	e.setItems(nil)
	e.enter(Loading)

	fctx, cancel := context.WithCancel(e.life)
	e.cancelFetch = cancel
	e.wg.Add(1)
	go e.fetch(fctx, e.gen, id.UserID)
}

func (e *Engine) fetch(ctx context.Context, gen uint64, user string) {
	defer e.wg.Done()

	products, err := e.remote.FetchAll(ctx, user)

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		e.logger.Debug("discarding stale favorites fetch", "user", user)
		return
	}
	e.cancelFetch = nil

	if err != nil {
		e.logger.Warn("favorites fetch failed; falling back to device list", "user", user, "error", err)
		e.user = ""
		e.setItems(e.local.Load(ctx))
		e.enter(LocalBacked)
		e.replayLocked(ctx)
		e.mu.Unlock()
		notify.Send(ctx, e.sink, e.logger, notify.Notice{Severity: notify.Error, Message: MsgLoadFailed})
		return
	}

	e.setItems(products)
	e.enter(RemoteBacked)
	e.replayLocked(ctx)
	e.logger.Debug("favorites remote-backed", "user", user, "count", len(e.items))
	e.mu.Unlock()
}

// Toggle flips membership of product and reports the new membership.
// It never fails: persistence problems surface as notices.
func (e *Engine) Toggle(ctx context.Context, product shop.Product) bool {
	if product.ID == "" {
		e.logger.Warn("ignoring favorite toggle without product id")
		return false
	}

	e.mu.Lock()
	desired := !e.index.Contains(product.ID)
	e.applyLocked(product, desired)

	switch e.state {
	case LocalBacked:
		e.local.Save(ctx, e.snapshotLocked())
	case RemoteBacked:
		e.enqueueLocked(product, desired)
	case Loading:
		e.pending = append(e.pending, pendingToggle{product: product, desired: desired, gen: e.gen})
	}
	e.mu.Unlock()

	msg := MsgRemoved
	if desired {
		msg = MsgAdded
	}
	notify.Send(ctx, e.sink, e.logger, notify.Notice{Severity: notify.Success, Message: msg})
	return desired
}

// IsFavorite reports whether productID is in the visible list.
func (e *Engine) IsFavorite(productID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Contains(productID)
}

// Items returns a copy of the visible list in insertion order.
func (e *Engine) Items() []shop.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns the current backing mode.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Wait blocks until the engine is not Loading.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Loading {
		e.mu.Unlock()
		return nil
	}
	ch := e.loaded
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any fetch, stops accepting writes and waits for background
// fetches to finish. Run drains the writes queued before Close and returns.
func (e *Engine) Close() {
	e.mu.Lock()
	e.gen++
	if e.cancelFetch != nil {
		e.cancelFetch()
		e.cancelFetch = nil
	}
	e.mu.Unlock()

	e.stop()
	e.queue.Close()
	e.wg.Wait()
}

// enter moves to s, releasing Wait callers when Loading ends.
func (e *Engine) enter(s State) {
	wasLoading := e.state == Loading
	e.state = s
	switch {
	case wasLoading && s != Loading:
		close(e.loaded)
	case !wasLoading && s == Loading:
		e.loaded = make(chan struct{})
	}
}

// setItems replaces the visible list, keeping the first of any duplicates.
func (e *Engine) setItems(products []shop.Product) {
	e.items = make([]shop.Product, 0, len(products))
	e.index.Clear()
	for _, p := range products {
		if p.ID == "" || e.index.Contains(p.ID) {
			continue
		}
		e.index.Add(p.ID)
		e.items = append(e.items, p)
	}
}

func (e *Engine) applyLocked(product shop.Product, desired bool) {
	has := e.index.Contains(product.ID)
	switch {
	case desired && !has:
		e.index.Add(product.ID)
		e.items = append(e.items, product)
	case !desired && has:
		e.index.Remove(product.ID)
		out := e.items[:0:0]
		for _, p := range e.items {
			if p.ID != product.ID {
				out = append(out, p)
			}
		}
		e.items = out
	}
}

// replayLocked applies toggles recorded while Loading to the backend the
// load selected.
func (e *Engine) replayLocked(ctx context.Context) {
	if len(e.pending) == 0 {
		return
	}
	pending := e.pending
	e.pending = nil

	for _, p := range pending {
		e.applyLocked(p.product, p.desired)
		if e.state == RemoteBacked {
			e.enqueueLocked(p.product, p.desired)
		}
	}
	if e.state == LocalBacked {
		e.local.Save(ctx, e.snapshotLocked())
	}
	e.logger.Debug("replayed pending favorite toggles", "count", len(pending), "state", e.state)
}

// dropSupersededLocked discards toggles made during a load that is about to
// be replaced. They belong to that identity and must not reach the next one.
// Toggles made before the first identity are kept.
func (e *Engine) dropSupersededLocked() {
	kept := e.pending[:0]
	for _, p := range e.pending {
		if p.gen == 0 {
			kept = append(kept, p)
		}
	}
	if dropped := len(e.pending) - len(kept); dropped > 0 {
		e.logger.Debug("dropping favorite toggles of a superseded load", "count", dropped, "user", e.user)
	}
	e.pending = kept
}

func (e *Engine) enqueueLocked(product shop.Product, desired bool) {
	if !e.queue.Enqueue(job{user: e.user, product: product, desired: desired}) {
		e.logger.Warn("favorite write dropped; engine closed", "product", product.ID)
	}
}

func (e *Engine) snapshotLocked() []shop.Product {
	out := make([]shop.Product, len(e.items))
	copy(out, e.items)
	return out
}
