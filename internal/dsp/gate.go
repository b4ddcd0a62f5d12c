package dsp

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ColonelBlimp/morsekey/internal/signal"
)

var (
	// ErrGoertzelRequired indicates a gate needs a Goertzel filter
	ErrGoertzelRequired = errors.New("goertzel instance is required")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrInvalidAGCAttack indicates AGC attack must be between 0 and 1
	ErrInvalidAGCAttack = errors.New("agc attack must be between 0.0 and 1.0")
	// ErrInvalidAGCFloor indicates the AGC floor must be positive
	ErrInvalidAGCFloor = errors.New("agc floor must be positive")
)

// GateConfig holds the tone gate settings.
type GateConfig struct {
	// Thresholds is the dead zone applied to the (normalized) block magnitude.
	Thresholds signal.Thresholds
	// AGCEnabled divides each magnitude by a tracked peak before thresholding.
	AGCEnabled bool
	// AGCDecay is the per-block peak decay factor.
	AGCDecay float64
	// AGCAttack is how quickly the peak follows a louder block.
	AGCAttack float64
	// AGCFloor stops the peak decaying into the noise floor during long silences.
	AGCFloor float64
}

// Gate turns audio blocks into key levels. Process runs on the audio thread;
// Read may be called concurrently from the polling loop.
type Gate struct {
	config   GateConfig
	goertzel *Goertzel

	mu      sync.Mutex
	pending []float32
	agcPeak float64

	level atomic.Int32
}

// NewGate creates a gate. The level reads Deasserted until the first block is processed.
func NewGate(cfg GateConfig, g *Goertzel) (*Gate, error) {
	if g == nil {
		return nil, ErrGoertzelRequired
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.AGCEnabled {
		if cfg.AGCDecay <= 0 || cfg.AGCDecay > 1 {
			return nil, ErrInvalidAGCDecay
		}
		if cfg.AGCAttack <= 0 || cfg.AGCAttack > 1 {
			return nil, ErrInvalidAGCAttack
		}
		if cfg.AGCFloor <= 0 {
			return nil, ErrInvalidAGCFloor
		}
	}
	gate := &Gate{
		config:   cfg,
		goertzel: g,
		pending:  make([]float32, 0, g.BlockSize()),
		agcPeak:  cfg.AGCFloor,
	}
	gate.level.Store(int32(signal.Deasserted))
	return gate, nil
}

// Process consumes samples, classifying every complete block.
func (g *Gate) Process(samples []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	size := g.goertzel.BlockSize()
	for len(samples) > 0 {
		n := size - len(g.pending)
		if n > len(samples) {
			n = len(samples)
		}
		g.pending = append(g.pending, samples[:n]...)
		samples = samples[n:]
		if len(g.pending) == size {
			g.classify(g.goertzel.magnitude(g.pending))
			g.pending = g.pending[:0]
		}
	}
}

func (g *Gate) classify(magnitude float64) {
	if g.config.AGCEnabled {
		magnitude = g.applyAGC(magnitude)
	}
	g.level.Store(int32(g.config.Thresholds.Classify(magnitude)))
}

// applyAGC normalizes magnitude against a peak that rises quickly and decays slowly.
func (g *Gate) applyAGC(magnitude float64) float64 {
	if magnitude > g.agcPeak {
		g.agcPeak += g.config.AGCAttack * (magnitude - g.agcPeak)
	} else {
		g.agcPeak *= g.config.AGCDecay
	}
	if g.agcPeak < g.config.AGCFloor {
		g.agcPeak = g.config.AGCFloor
	}
	normalized := magnitude / g.agcPeak
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// Read returns the level of the most recent block.
func (g *Gate) Read() signal.Level {
	return signal.Level(g.level.Load())
}

// Reset drops any partial block and returns the gate to Deasserted.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.pending = g.pending[:0]
	g.agcPeak = g.config.AGCFloor
	g.mu.Unlock()
	g.level.Store(int32(signal.Deasserted))
}
