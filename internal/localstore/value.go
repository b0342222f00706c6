package localstore

import (
	"context"
	"log/slog"

	"github.com/roach88/storefront/internal/codec"
	"github.com/roach88/storefront/internal/syncerr"
)

// Value persists a single T under one key, with the same failure tolerance as List.
type Value[T any] struct {
	storage Storage
	key     string
	logger  *slog.Logger
}

// NewValue creates a Value stored under key. A nil logger uses slog.Default().
func NewValue[T any](storage Storage, key string, logger *slog.Logger) *Value[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Value[T]{storage: storage, key: key, logger: logger.With("key", key)}
}

// Load returns the stored value. ok is false when it is absent or corrupt.
func (v *Value[T]) Load(ctx context.Context) (T, bool) {
	var zero T
	raw, ok, err := v.storage.Get(ctx, v.key)
	if err != nil {
		v.logger.Warn("local value unreadable", "error", syncerr.StorageParse(v.key, err))
		return zero, false
	}
	if !ok || raw == "" {
		return zero, false
	}

	var out T
	if err := codec.Unmarshal([]byte(raw), &out); err != nil {
		v.logger.Warn("local value unreadable", "error", syncerr.StorageParse(v.key, err))
		return zero, false
	}
	return out, true
}

// Save overwrites the stored value. Failures are logged, never returned.
func (v *Value[T]) Save(ctx context.Context, val T) {
	data, err := codec.Marshal(val)
	if err != nil {
		v.logger.Warn("local value not encoded", "error", err)
		return
	}
	if err := v.storage.Set(ctx, v.key, string(data)); err != nil {
		v.logger.Warn("local value not saved", "error", err)
	}
}

// Clear removes the stored value. Failures are logged, never returned.
func (v *Value[T]) Clear(ctx context.Context) {
	if err := v.storage.Remove(ctx, v.key); err != nil {
		v.logger.Warn("local value not cleared", "error", err)
	}
}
