package cw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ColonelBlimp/morsekey/internal/clock"
	"github.com/ColonelBlimp/morsekey/internal/signal"
)

var (
	// ErrPublisherRequired indicates a classifier was built without a publisher
	ErrPublisherRequired = errors.New("publisher is required")
	// ErrSourceRequired indicates Run was called without a signal source
	ErrSourceRequired = errors.New("signal source is required")
)

// Publisher receives the raw buffer and the full transcript after every decode cycle.
type Publisher interface {
	Publish(raw, message string)
}

// Stats counts what the classifier has seen since start.
type Stats struct {
	Dots     uint64 `json:"dots"`
	Dashes   uint64 `json:"dashes"`
	Dropped  uint64 `json:"dropped"`
	CharGaps uint64 `json:"char_gaps"`
	WordGaps uint64 `json:"word_gaps"`
	Noise    uint64 `json:"noise"`
	Cycles   uint64 `json:"cycles"`
}

// String renders the counters for a log line.
func (s Stats) String() string {
	return fmt.Sprintf("dots=%s dashes=%s dropped=%s char_gaps=%s word_gaps=%s noise=%s cycles=%s",
		humanize.Comma(int64(s.Dots)), humanize.Comma(int64(s.Dashes)),
		humanize.Comma(int64(s.Dropped)), humanize.Comma(int64(s.CharGaps)),
		humanize.Comma(int64(s.WordGaps)), humanize.Comma(int64(s.Noise)),
		humanize.Comma(int64(s.Cycles)))
}

type counters struct {
	dots, dashes, dropped, charGaps, wordGaps, noise, cycles atomic.Uint64
}

// Classifier times key intervals and builds the raw symbol buffer.
// Poll and Run must be driven from a single goroutine; only Stats is safe to
// call from elsewhere.
type Classifier struct {
	timing Timing
	pub    Publisher
	logger *slog.Logger

	started    bool
	lastLevel  signal.Level
	lastChange clock.Ticks

	buf        strings.Builder
	transcript Transcript

	counts counters
}

// NewClassifier creates a classifier. A nil logger discards output.
func NewClassifier(t Timing, pub Publisher, logger *slog.Logger) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, ErrPublisherRequired
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{
		timing:    t,
		pub:       pub,
		logger:    logger,
		lastLevel: signal.Deasserted,
	}, nil
}

// Poll processes one reading taken at now.
func (c *Classifier) Poll(level signal.Level, now clock.Ticks) {
	if !c.started {
		c.started = true
		c.lastChange = now
	}

	switch {
	case level == signal.Indeterminate:
		c.counts.noise.Add(1)
	case level != c.lastLevel:
		c.edge(level, now)
	}

	if c.lastLevel == signal.Deasserted && c.buf.Len() > 0 && now.Sub(c.lastChange) > c.timing.IdleTimeout {
		c.flush()
	}
}

// edge closes the interval that started at lastChange.
func (c *Classifier) edge(level signal.Level, now clock.Ticks) {
	d := now.Sub(c.lastChange)
	c.lastChange = now

	var tok Token
	if c.lastLevel == signal.Asserted {
		tok = ClassifyPress(d, c.timing)
	} else {
		tok = ClassifyGap(d, c.timing)
	}
	c.lastLevel = level

	switch tok {
	case TokenDot:
		c.counts.dots.Add(1)
	case TokenDash:
		c.counts.dashes.Add(1)
	case TokenDropped:
		c.counts.dropped.Add(1)
		c.logger.Debug("classifier: press exceeds dash ceiling, dropped", "duration", d)
	case TokenCharGap:
		c.counts.charGaps.Add(1)
	case TokenWordGap:
		c.counts.wordGaps.Add(1)
	}
	c.buf.WriteString(tok.Symbol())
}

// flush decodes the buffer, publishes the result and clears the buffer.
func (c *Classifier) flush() {
	raw := strings.Trim(c.buf.String(), " ")
	c.buf.Reset()
	if raw == "" {
		return
	}

	text := Decode(raw)
	c.transcript.Append(text)
	c.counts.cycles.Add(1)
	c.pub.Publish(raw, c.transcript.String())
	c.logger.Debug("classifier: decoded", "raw", raw, "text", text)
}

// Raw returns the symbols buffered since the last decode cycle.
func (c *Classifier) Raw() string {
	return c.buf.String()
}

// Transcript returns everything decoded so far.
func (c *Classifier) Transcript() string {
	return c.transcript.String()
}

// Stats returns a copy of the counters.
func (c *Classifier) Stats() Stats {
	return Stats{
		Dots:     c.counts.dots.Load(),
		Dashes:   c.counts.dashes.Load(),
		Dropped:  c.counts.dropped.Load(),
		CharGaps: c.counts.charGaps.Load(),
		WordGaps: c.counts.wordGaps.Load(),
		Noise:    c.counts.noise.Load(),
		Cycles:   c.counts.cycles.Load(),
	}
}

// Timing returns the calibration in use.
func (c *Classifier) Timing() Timing {
	return c.timing
}

// Run polls src until ctx is cancelled. Between polls it sleeps for the poll
// interval, or yields when the interval is zero.
func (c *Classifier) Run(ctx context.Context, src signal.Source, clk clock.Clock) error {
	if src == nil {
		return ErrSourceRequired
	}
	c.logger.Info("classifier: listening",
		"dot_ceiling", c.timing.DotCeiling, "dash_ceiling", c.timing.DashCeiling,
		"char_gap", c.timing.CharGap, "word_gap", c.timing.WordGap,
		"idle_timeout", c.timing.IdleTimeout)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("classifier: stopped", "stats", c.Stats().String())
			return ctx.Err()
		default:
		}

		c.Poll(src.Read(), clk.Now())

		if c.timing.PollInterval > 0 {
			time.Sleep(c.timing.PollInterval)
		} else {
			runtime.Gosched()
		}
	}
}
