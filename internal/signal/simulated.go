package signal

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/clock"
)

// ErrInvalidKeying indicates a keying duration is not positive
var ErrInvalidKeying = errors.New("keying durations must be positive")

// Keying holds the element durations the simulator keys with.
type Keying struct {
	Dot       time.Duration
	Dash      time.Duration
	SymbolGap time.Duration // between elements of one character
	CharGap   time.Duration
	WordGap   time.Duration
	LeadIn    time.Duration // key-up time before the first element
	Bounce    time.Duration // indeterminate window after every edge, 0 to disable
}

// DefaultKeying returns timings that sit well inside the default decoder ceilings.
func DefaultKeying() Keying {
	return Keying{
		Dot:       80 * time.Millisecond,
		Dash:      250 * time.Millisecond,
		SymbolGap: 100 * time.Millisecond,
		CharGap:   400 * time.Millisecond,
		WordGap:   900 * time.Millisecond,
		LeadIn:    100 * time.Millisecond,
	}
}

// Validate checks all durations (Bounce may be zero).
func (k Keying) Validate() error {
	if k.Dot <= 0 || k.Dash <= 0 || k.SymbolGap <= 0 || k.CharGap <= 0 || k.WordGap <= 0 || k.LeadIn <= 0 || k.Bounce < 0 {
		return ErrInvalidKeying
	}
	return nil
}

type segment struct {
	level Level
	end   time.Duration // offset from start at which the segment ends
}

// Simulated replays a raw Morse pattern (".- -...   -.-.") as key levels
// against a clock. Time starts at the first Read.
type Simulated struct {
	clk      clock.Clock
	keying   Keying
	segments []segment
	started  bool
	start    clock.Ticks
}

// NewSimulated builds the keying schedule for pattern.
func NewSimulated(pattern string, keying Keying, clk clock.Clock) (*Simulated, error) {
	if err := keying.Validate(); err != nil {
		return nil, err
	}
	s := &Simulated{clk: clk, keying: keying}
	s.build(pattern)
	return s, nil
}

func (s *Simulated) build(pattern string) {
	var at time.Duration
	add := func(l Level, d time.Duration) {
		at += d
		s.segments = append(s.segments, segment{level: l, end: at})
	}

	add(Deasserted, s.keying.LeadIn)
	first := true
	var gap time.Duration
	for wi, word := range strings.Split(strings.TrimSpace(pattern), "   ") {
		if wi > 0 {
			gap = s.keying.WordGap
		}
		for ci, group := range strings.Fields(word) {
			if ci > 0 && gap == 0 {
				gap = s.keying.CharGap
			}
			for _, el := range group {
				var on time.Duration
				switch el {
				case '.':
					on = s.keying.Dot
				case '-':
					on = s.keying.Dash
				default:
					continue
				}
				if !first {
					if gap == 0 {
						gap = s.keying.SymbolGap
					}
					add(Deasserted, gap)
				}
				add(Asserted, on)
				first = false
				gap = 0
			}
		}
	}
}

// Read returns the level the key would have at the current clock reading.
// After the pattern ends the key stays up.
func (s *Simulated) Read() Level {
	now := s.clk.Now()
	if !s.started {
		s.started = true
		s.start = now
	}
	elapsed := now.Sub(s.start)

	i := sort.Search(len(s.segments), func(i int) bool { return s.segments[i].end > elapsed })
	if s.keying.Bounce > 0 && i > 0 && elapsed-s.segments[i-1].end < s.keying.Bounce {
		return Indeterminate
	}
	if i == len(s.segments) {
		return Deasserted
	}
	return s.segments[i].level
}

// Duration is the total keyed length of the pattern including the lead-in.
func (s *Simulated) Duration() time.Duration {
	if len(s.segments) == 0 {
		return 0
	}
	return s.segments[len(s.segments)-1].end
}
