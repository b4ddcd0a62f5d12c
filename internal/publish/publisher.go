// Package publish holds the latest decoded state and hands copies of it to readers and sinks.
package publish

import (
	"sync"
	"time"
)

// DefaultUpdateBuffer is the capacity of the update channel.
const DefaultUpdateBuffer = 16

// Snapshot is one consistent view of the decoder output.
// Raw and Message always come from the same decode cycle.
type Snapshot struct {
	Raw       string    `json:"morse"`
	Message   string    `json:"message"`
	Cycle     uint64    `json:"cycle"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher guards the shared snapshot with a single lock.
// Publish is called by the classifier; Snapshot by any number of readers.
type Publisher struct {
	mu      sync.Mutex
	current Snapshot
	now     func() time.Time

	updates chan Snapshot
}

// New creates an empty publisher.
func New() *Publisher {
	return &Publisher{
		now:     time.Now,
		updates: make(chan Snapshot, DefaultUpdateBuffer),
	}
}

// Publish replaces both fields in one critical section, then offers the new
// snapshot on the update channel without blocking. When the channel is full
// the update is dropped; readers still see it through Snapshot.
func (p *Publisher) Publish(raw, message string) {
	p.mu.Lock()
	p.current = Snapshot{
		Raw:       raw,
		Message:   message,
		Cycle:     p.current.Cycle + 1,
		UpdatedAt: p.now(),
	}
	snap := p.current
	p.mu.Unlock()

	select {
	case p.updates <- snap:
	default:
	}
}

// Snapshot returns a copy of the latest published state.
func (p *Publisher) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Updates delivers snapshots as they are published. It has a single consumer, normally a Fanout.
func (p *Publisher) Updates() <-chan Snapshot {
	return p.updates
}
