package favorites

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/syncerr"
)

// Run drains the remote write queue until ctx is cancelled or the engine is
// closed and the queue is empty. Exactly one Run should be active.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Debug("favorites writer starting")

	for {
		if j, ok := e.queue.TryDequeue(); ok {
			e.process(ctx, j)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Debug("favorites writer stopping: context cancelled")
			return ctx.Err()
		case <-e.queue.Wait():
			// The signal channel is closed by Close; an empty queue then
			// means nothing is left to drain.
			if e.queue.Len() == 0 && e.closed() {
				e.logger.Debug("favorites writer stopping: engine closed")
				return nil
			}
		}
	}
}

// Flush waits until every write queued before the call has been attempted.
func (e *Engine) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !e.queue.Enqueue(job{barrier: barrier}) {
		return ErrClosed
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) closed() bool {
	return e.life.Err() != nil
}

func (e *Engine) process(ctx context.Context, j job) {
	if j.barrier != nil {
		close(j.barrier)
		return
	}

	b := &backoff.Backoff{Min: e.retry.Min, Max: e.retry.Max, Factor: 2, Jitter: true}
	logger := e.logger.With("user", j.user, "product", j.product.ID, "desired", j.desired)

	for attempt := 0; ; attempt++ {
		err := e.write(ctx, j)
		if err == nil {
			return
		}
		if syncerr.IsConflict(err) {
			logger.Debug("favorite already present")
			return
		}
		if ctx.Err() != nil {
			logger.Warn("favorite write abandoned", "error", err)
			return
		}
		if attempt >= e.retry.Retries {
			logger.Warn("favorite write failed", "attempts", attempt+1, "error", err)
			notify.Send(ctx, e.sink, e.logger, notify.Notice{Severity: notify.Error, Message: MsgSaveFailed})
			return
		}

		delay := b.Duration()
		logger.Debug("retrying favorite write", "attempt", attempt+1, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn("favorite write abandoned", "error", err)
			return
		case <-timer.C:
		}
	}
}

func (e *Engine) write(ctx context.Context, j job) error {
	if j.desired {
		return e.remote.Add(ctx, j.user, j.product.ID)
	}
	return e.remote.Remove(ctx, j.user, j.product.ID)
}
