// Package clock provides the wrapping microsecond tick counter used to time key intervals.
package clock

import (
	"sync"
	"time"
)

// Ticks is a free-running microsecond counter. It wraps roughly every 71 minutes,
// so durations must always be taken with Sub rather than by comparing values.
type Ticks uint32

// Sub returns the time elapsed from earlier to t.
// Unsigned subtraction keeps the result correct across a single wrap.
func (t Ticks) Sub(earlier Ticks) time.Duration {
	return time.Duration(uint32(t-earlier)) * time.Microsecond
}

// Add returns t advanced by d, wrapping like the hardware counter does.
func (t Ticks) Add(d time.Duration) Ticks {
	return t + Ticks(uint32(d/time.Microsecond))
}

// Clock produces tick readings.
type Clock interface {
	Now() Ticks
}

// Monotonic reads ticks from the Go runtime's monotonic clock.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a clock whose counter starts at zero now.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns the microseconds elapsed since the clock was created, truncated to 32 bits.
func (m *Monotonic) Now() Ticks {
	return Ticks(uint32(time.Since(m.start) / time.Microsecond))
}

// Manual is a clock advanced by hand. Used by tests and by the simulator when
// replaying at full speed.
type Manual struct {
	mu  sync.Mutex
	now Ticks
}

// NewManual returns a manual clock reading start.
func NewManual(start Ticks) *Manual {
	return &Manual{now: start}
}

// Now returns the current reading.
func (m *Manual) Now() Ticks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
