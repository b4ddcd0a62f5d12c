package publish

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ColonelBlimp/morsekey/internal/recovery"
)

// Sink receives every snapshot the fan-out sees.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, snap Snapshot) error
}

// Fanout drains a publisher's update channel and delivers each snapshot to
// every sink in turn. Sink failures are logged and do not stop delivery.
type Fanout struct {
	updates <-chan Snapshot
	logger  *slog.Logger

	mu    sync.RWMutex
	sinks []Sink
}

// NewFanout creates a fan-out reading from updates.
func NewFanout(updates <-chan Snapshot, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fanout{updates: updates, logger: logger}
}

// Add registers a sink. Safe to call while Run is active.
func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

// Run delivers until ctx is cancelled.
func (f *Fanout) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-f.updates:
			f.deliver(ctx, snap)
		}
	}
}

// Start runs the fan-out on its own goroutine.
func (f *Fanout) Start(ctx context.Context) {
	recovery.Go(func() { f.Run(ctx) })
}

func (f *Fanout) deliver(ctx context.Context, snap Snapshot) {
	f.mu.RLock()
	sinks := append([]Sink(nil), f.sinks...)
	f.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Deliver(ctx, snap); err != nil {
			f.logger.Warn("publish: sink delivery failed", "sink", s.Name(), "cycle", snap.Cycle, "error", err)
		}
	}
}

// LogSink writes each snapshot to a logger.
type LogSink struct {
	Logger *slog.Logger
}

// Name implements Sink.
func (LogSink) Name() string { return "log" }

// Deliver implements Sink.
func (s LogSink) Deliver(_ context.Context, snap Snapshot) error {
	s.Logger.Info("decoded", "cycle", snap.Cycle, "morse", snap.Raw, "message", snap.Message)
	return nil
}
