package audio

import (
	"fmt"

	"github.com/ColonelBlimp/morsekey/internal/dsp"
	"github.com/ColonelBlimp/morsekey/internal/signal"
)

// ToneSource keys on a sidetone heard by the sound card. The capture thread
// feeds the gate; Read reports the gate's latest block.
type ToneSource struct {
	capture *Capture
	gate    *dsp.Gate
}

// OpenTone initializes capture on the configured device and starts feeding gate.
func OpenTone(cfg Config, gate *dsp.Gate) (*ToneSource, error) {
	c := New(cfg, gate.Process)
	if err := c.Init(); err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("open tone source: %w", err)
	}
	return &ToneSource{capture: c, gate: gate}, nil
}

// Read implements signal.Source.
func (t *ToneSource) Read() signal.Level {
	return t.gate.Read()
}

// Close stops capture and releases the audio backend.
func (t *ToneSource) Close() error {
	return t.capture.Close()
}
