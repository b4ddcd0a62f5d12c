package cw

import (
	"errors"
	"math"
	"time"
)

// Ceiling ratios relative to the nominal dot length. Presses get a little
// headroom above the ITU 1:3 ratio; gaps use the ITU 3 and 7 unit spacings.
const (
	DotCeilingRatio  = 1.15
	DashCeilingRatio = 3.15
	CharGapRatio     = 3.0
	WordGapRatio     = 7.0

	// DefaultUnit is the nominal dot length the default timing is built from.
	DefaultUnit = 100 * time.Millisecond
	// DefaultIdleTimeout is how long the key must stay up before the buffer is decoded.
	DefaultIdleTimeout = 2 * time.Second
	// DefaultPollInterval is the sleep between polls of the signal source.
	DefaultPollInterval = 50 * time.Microsecond
)

var (
	// ErrInvalidDotCeiling indicates the dot ceiling must be positive
	ErrInvalidDotCeiling = errors.New("dot ceiling must be positive")
	// ErrInvalidDashCeiling indicates the dash ceiling must exceed the dot ceiling
	ErrInvalidDashCeiling = errors.New("dash ceiling must be greater than dot ceiling")
	// ErrInvalidCharGap indicates the character gap must be positive
	ErrInvalidCharGap = errors.New("character gap must be positive")
	// ErrInvalidWordGap indicates the word gap must exceed the character gap
	ErrInvalidWordGap = errors.New("word gap must be greater than character gap")
	// ErrInvalidIdleTimeout indicates the idle timeout must exceed the word gap
	ErrInvalidIdleTimeout = errors.New("idle timeout must be greater than word gap")
	// ErrInvalidPollInterval indicates the poll interval must not be negative
	ErrInvalidPollInterval = errors.New("poll interval must not be negative")
)

// Token is the outcome of classifying one closed interval.
type Token uint8

const (
	// TokenNone is a gap too short to separate characters.
	TokenNone Token = iota
	// TokenDot is a short press.
	TokenDot
	// TokenDash is a long press.
	TokenDash
	// TokenDropped is a press longer than the dash ceiling. It is discarded.
	TokenDropped
	// TokenCharGap separates characters within a word.
	TokenCharGap
	// TokenWordGap separates words.
	TokenWordGap
)

// Symbol returns the text the token appends to the raw buffer.
func (t Token) Symbol() string {
	switch t {
	case TokenDot:
		return "."
	case TokenDash:
		return "-"
	case TokenCharGap:
		return CharSeparator
	case TokenWordGap:
		return WordSeparator
	default:
		return ""
	}
}

// String names the token for logs.
func (t Token) String() string {
	switch t {
	case TokenDot:
		return "dot"
	case TokenDash:
		return "dash"
	case TokenDropped:
		return "dropped"
	case TokenCharGap:
		return "char-gap"
	case TokenWordGap:
		return "word-gap"
	default:
		return "none"
	}
}

// Timing is the calibration the classifier runs with.
// Press buckets are inclusive at the top: d <= DotCeiling is a dot.
// Gap buckets are exclusive at the bottom: d > WordGap is a word gap.
type Timing struct {
	DotCeiling   time.Duration
	DashCeiling  time.Duration
	CharGap      time.Duration
	WordGap      time.Duration
	IdleTimeout  time.Duration
	PollInterval time.Duration // 0 yields the processor instead of sleeping
}

// TimingFromUnit derives the ceilings from a nominal dot length.
func TimingFromUnit(unit time.Duration) Timing {
	scale := func(ratio float64) time.Duration {
		return time.Duration(math.Round(ratio * float64(unit)))
	}
	return Timing{
		DotCeiling:   scale(DotCeilingRatio),
		DashCeiling:  scale(DashCeilingRatio),
		CharGap:      scale(CharGapRatio),
		WordGap:      scale(WordGapRatio),
		IdleTimeout:  DefaultIdleTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// DefaultTiming returns the timing for a 100ms dot.
func DefaultTiming() Timing {
	return TimingFromUnit(DefaultUnit)
}

// Validate checks the ordering of the ceilings.
func (t Timing) Validate() error {
	if t.DotCeiling <= 0 {
		return ErrInvalidDotCeiling
	}
	if t.DashCeiling <= t.DotCeiling {
		return ErrInvalidDashCeiling
	}
	if t.CharGap <= 0 {
		return ErrInvalidCharGap
	}
	if t.WordGap <= t.CharGap {
		return ErrInvalidWordGap
	}
	if t.IdleTimeout <= t.WordGap {
		return ErrInvalidIdleTimeout
	}
	if t.PollInterval < 0 {
		return ErrInvalidPollInterval
	}
	return nil
}

// ClassifyPress buckets the length of a key-down interval.
// Presses beyond the dash ceiling are dropped rather than clamped to a dash.
func ClassifyPress(d time.Duration, t Timing) Token {
	switch {
	case d <= t.DotCeiling:
		return TokenDot
	case d <= t.DashCeiling:
		return TokenDash
	default:
		return TokenDropped
	}
}

// ClassifyGap buckets the length of a key-up interval. A word gap wins over a
// character gap when both ceilings are exceeded.
func ClassifyGap(d time.Duration, t Timing) Token {
	switch {
	case d > t.WordGap:
		return TokenWordGap
	case d > t.CharGap:
		return TokenCharGap
	default:
		return TokenNone
	}
}
