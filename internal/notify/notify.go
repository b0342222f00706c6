// Package notify is the fire-and-forget notification sink used to surface
// outcomes to the user. Failing to display a notice is never fatal.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Severity classifies a notice.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
)

// Notice is one user-facing message.
type Notice struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// Sink displays notices.
type Sink interface {
	Notify(ctx context.Context, n Notice) error
}

// Send delivers n to sink. A sink failure is logged and dropped.
func Send(ctx context.Context, sink Sink, logger *slog.Logger, n Notice) {
	if sink == nil {
		return
	}
	if err := sink.Notify(ctx, n); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("notice not delivered", "severity", n.Severity, "message", n.Message, "error", err)
	}
}

// LogSink writes notices to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, n Notice) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Severity == Error {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, n.Message, "severity", string(n.Severity))
	return nil
}

// Recorder keeps every notice in delivery order. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Messages returns the recorded messages in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}

// Reset drops all recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

// Multi fans a notice out to several sinks and returns the first failure.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var first error
	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
