// Package signal reads the key line and reports it as a tri-state level.
package signal

import "errors"

// Level is the state of the key line as seen by one read.
type Level int8

const (
	// Deasserted means the key is up.
	Deasserted Level = iota
	// Asserted means the key is down.
	Asserted
	// Indeterminate means the reading fell inside the dead zone and carries no information.
	Indeterminate
)

// String returns a short name for the level.
func (l Level) String() string {
	switch l {
	case Asserted:
		return "asserted"
	case Deasserted:
		return "deasserted"
	default:
		return "indeterminate"
	}
}

var (
	// ErrInvalidThresholds indicates the dead zone is empty or inverted
	ErrInvalidThresholds = errors.New("low threshold must be below high threshold")
	// ErrSamplerRequired indicates an analog source was built without a sampler
	ErrSamplerRequired = errors.New("sampler is required")
	// ErrPinRequired indicates a digital source was built without a pin
	ErrPinRequired = errors.New("pin is required")
)

// Source produces a level reading on demand.
// Read is called from the polling loop and must return quickly without blocking.
type Source interface {
	Read() Level
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func() Level

// Read calls f.
func (f SourceFunc) Read() Level {
	return f()
}

// Thresholds splits a continuous reading into levels.
// Values strictly above High are asserted, values strictly below Low are
// deasserted, and everything in between is the dead zone.
type Thresholds struct {
	Low  float64
	High float64
}

// Validate checks that the dead zone is non-empty.
func (t Thresholds) Validate() error {
	if t.Low >= t.High {
		return ErrInvalidThresholds
	}
	return nil
}

// Classify maps a reading to a level.
func (t Thresholds) Classify(v float64) Level {
	switch {
	case v > t.High:
		return Asserted
	case v < t.Low:
		return Deasserted
	default:
		return Indeterminate
	}
}
