package localstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/storefront/internal/codec"
	"github.com/roach88/storefront/internal/syncerr"
)

// List persists a whole []T under one key.
type List[T any] struct {
	storage Storage
	key     string
	logger  *slog.Logger
}

// NewList creates a List stored under key. A nil logger uses slog.Default().
func NewList[T any](storage Storage, key string, logger *slog.Logger) *List[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &List[T]{storage: storage, key: key, logger: logger.With("key", key)}
}

// Key returns the storage key.
func (l *List[T]) Key() string {
	return l.key
}

// Load returns the stored list, or an empty non-nil list when the value is
// absent or cannot be decoded.
func (l *List[T]) Load(ctx context.Context) []T {
	items, err := l.load(ctx)
	if err != nil {
		l.logger.Warn("local list unreadable, using empty list", "error", err)
		return []T{}
	}
	return items
}

func (l *List[T]) load(ctx context.Context) ([]T, error) {
	raw, ok, err := l.storage.Get(ctx, l.key)
	if err != nil {
		return nil, syncerr.StorageParse(l.key, err)
	}
	if !ok || raw == "" {
		return []T{}, nil
	}

	var items []T
	if err := codec.Unmarshal([]byte(raw), &items); err != nil {
		return nil, syncerr.StorageParse(l.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save overwrites the stored list with items. Failures are logged, never returned.
func (l *List[T]) Save(ctx context.Context, items []T) {
	if err := l.save(ctx, items); err != nil {
		l.logger.Warn("local list not saved", "error", err, "items", len(items))
	}
}

func (l *List[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := codec.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return l.storage.Set(ctx, l.key, string(data))
}

// Clear removes the stored list. Failures are logged, never returned.
func (l *List[T]) Clear(ctx context.Context) {
	if err := l.storage.Remove(ctx, l.key); err != nil {
		l.logger.Warn("local list not cleared", "error", err)
	}
}
