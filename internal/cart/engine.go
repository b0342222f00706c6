package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/storefront/internal/localstore"
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/shop"
)

// Notice messages emitted by Engine.
const (
	MsgAdded   = "Added to cart"
	MsgUpdated = "Cart updated"
	MsgRemoved = "Removed from cart"
	MsgCleared = "Cart cleared"
)

// Engine owns the in-memory cart and mirrors it to local storage after every
// mutation. Safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	items  []shop.LineItem
	local  *localstore.List[shop.LineItem]
	sink   notify.Sink
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an empty Engine. Call Load to restore the persisted cart.
func New(local *localstore.List[shop.LineItem], sink notify.Sink, opts ...Option) *Engine {
	e := &Engine{
		items:  []shop.LineItem{},
		local:  local,
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load replaces the in-memory cart with the persisted one.
// Entries with a non-positive quantity are dropped.
func (e *Engine) Load(ctx context.Context) {
	loaded := e.local.Load(ctx)
	items := make([]shop.LineItem, 0, len(loaded))
	for _, li := range loaded {
		if li.Quantity < 1 || li.Product.ID == "" {
			e.logger.Warn("dropping invalid persisted cart line", "product", li.Product.ID, "quantity", li.Quantity)
			continue
		}
		items = append(items, li)
	}

	e.mu.Lock()
	e.items = items
	e.mu.Unlock()
	e.logger.Debug("cart loaded", "lines", len(items))
}

// ItemOption sets optional attributes of an added line.
type ItemOption func(*shop.LineItem)

// WithSize sets the line size.
func WithSize(size string) ItemOption {
	return func(li *shop.LineItem) { li.Size = size }
}

// WithColor sets the line color.
func WithColor(color string) ItemOption {
	return func(li *shop.LineItem) { li.Color = color }
}

// Add adds quantity units of product (1 when quantity < 1).
func (e *Engine) Add(ctx context.Context, product shop.Product, quantity int, opts ...ItemOption) {
	var li shop.LineItem
	for _, opt := range opts {
		opt(&li)
	}
	e.mutate(ctx, MsgAdded, "", func(items []shop.LineItem) []shop.LineItem {
		return Add(items, product, quantity, li.Size, li.Color)
	})
}

// Remove deletes every line for productID. Returns false if none existed.
func (e *Engine) Remove(ctx context.Context, productID string) bool {
	return e.mutate(ctx, MsgRemoved, productID, func(items []shop.LineItem) []shop.LineItem {
		return Remove(items, productID)
	})
}

// UpdateQuantity sets the quantity of every line for productID to max(1, quantity).
// Returns false if the product is not in the cart.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, quantity int) bool {
	return e.mutate(ctx, MsgUpdated, productID, func(items []shop.LineItem) []shop.LineItem {
		return UpdateQuantity(items, productID, quantity)
	})
}

// Clear empties the cart and removes the persisted mirror.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	e.items = []shop.LineItem{}
	e.local.Clear(ctx)
	e.mu.Unlock()

	notify.Send(ctx, e.sink, e.logger, notify.Notice{Severity: notify.Success, Message: MsgCleared})
}

// Items returns a copy of the current lines.
func (e *Engine) Items() []shop.LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]shop.LineItem, len(e.items))
	copy(out, e.items)
	return out
}

// Totals returns the derived totals of the current lines.
func (e *Engine) Totals() shop.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CalculateTotals(e.items)
}

// mutate applies fn to the in-memory list, then writes the full list through
// the local adapter. When productID is non-empty the mutation only happens if
// the cart holds a line for it. The write happens under the lock so that
// saves land in mutation order.
func (e *Engine) mutate(ctx context.Context, msg, productID string, fn func([]shop.LineItem) []shop.LineItem) bool {
	e.mu.Lock()
	if productID != "" && !contains(e.items, productID) {
		e.mu.Unlock()
		e.logger.Debug("cart has no line for product", "product", productID)
		return false
	}
	e.items = fn(e.items)
	e.local.Save(ctx, e.items)
	e.mu.Unlock()

	notify.Send(ctx, e.sink, e.logger, notify.Notice{Severity: notify.Success, Message: msg})
	return true
}
