package testutil

import (
	"sync"
	"time"
)

// StepClock is a wall clock that advances by a fixed step on every reading.
//
// It stands in for time.Now wherever a component stamps records, so that
// ordering by timestamp is deterministic and golden output is stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int64
}

// NewStepClock creates a clock whose first reading is base.
// A non-positive step defaults to one second.
func NewStepClock(base time.Time, step time.Duration) *StepClock {
	if step <= 0 {
		step = time.Second
	}
	return &StepClock{base: base, step: step}
}

// Now returns the next reading.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Reset rewinds the clock so the next reading is base again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
