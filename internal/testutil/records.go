package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/storefront/internal/remote"
)

// RecordStore operation names for Records.
const (
	OpSelectByIDs = "select_by_ids"
	OpSelectWhere = "select_where"
	OpInsert      = "insert"
	OpDeleteWhere = "delete_where"
)

// ErrInjected is returned by Records for injected failures.
var ErrInjected = errors.New("injected backend failure")

// Records wraps a remote.RecordStore with failure injection, call gating
// and call counting.
type Records struct {
	inner remote.RecordStore

	mu    sync.Mutex
	fail  map[string]int
	hold  map[string]chan struct{}
	calls map[string]int
}

var _ remote.RecordStore = (*Records)(nil)

// NewRecords wraps inner.
func NewRecords(inner remote.RecordStore) *Records {
	return &Records{
		inner: inner,
		fail:  make(map[string]int),
		hold:  make(map[string]chan struct{}),
		calls: make(map[string]int),
	}
}

// FailNext makes the next n calls of op fail with ErrInjected.
func (r *Records) FailNext(op string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = n
}

// FailAlways makes every call of op fail until Heal.
func (r *Records) FailAlways(op string) {
	r.FailNext(op, -1)
}

// Heal clears all injected failures.
func (r *Records) Heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.fail)
}

// Hold blocks calls of op until the returned release func is called or the
// call's context ends. Calling release more than once is safe.
func (r *Records) Hold(op string) (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.hold[op] = gate
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.hold[op] == gate {
				delete(r.hold, op)
			}
			r.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many times op was invoked.
func (r *Records) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *Records) enter(ctx context.Context, op string) error {
	r.mu.Lock()
	r.calls[op]++
	gate := r.hold[op]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch n := r.fail[op]; {
	case n < 0:
		return ErrInjected
	case n > 0:
		r.fail[op] = n - 1
		return ErrInjected
	}
	return nil
}

func (r *Records) SelectByIDs(ctx context.Context, collection string, ids []string) ([]remote.Record, error) {
	if err := r.enter(ctx, OpSelectByIDs); err != nil {
		return nil, err
	}
	return r.inner.SelectByIDs(ctx, collection, ids)
}

func (r *Records) SelectWhere(ctx context.Context, collection string, filters ...remote.Filter) ([]remote.Record, error) {
	if err := r.enter(ctx, OpSelectWhere); err != nil {
		return nil, err
	}
	return r.inner.SelectWhere(ctx, collection, filters...)
}

func (r *Records) Insert(ctx context.Context, collection, id string, rec remote.Record) error {
	if err := r.enter(ctx, OpInsert); err != nil {
		return err
	}
	return r.inner.Insert(ctx, collection, id, rec)
}

func (r *Records) DeleteWhere(ctx context.Context, collection string, filters ...remote.Filter) error {
	if err := r.enter(ctx, OpDeleteWhere); err != nil {
		return err
	}
	return r.inner.DeleteWhere(ctx, collection, filters...)
}
