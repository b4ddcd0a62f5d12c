package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ColonelBlimp/morsekey/internal/audio"
	"github.com/ColonelBlimp/morsekey/internal/clock"
	"github.com/ColonelBlimp/morsekey/internal/config"
	"github.com/ColonelBlimp/morsekey/internal/cw"
	"github.com/ColonelBlimp/morsekey/internal/dsp"
	"github.com/ColonelBlimp/morsekey/internal/signal"
)

// openSource builds the configured signal source. The returned func releases it.
func openSource(s *config.Settings, clk clock.Clock, logger *slog.Logger) (signal.Source, func(), error) {
	noop := func() {}

	switch s.Source {
	case config.SourceDigital:
		pull, err := signal.ParsePull(s.GPIOPull)
		if err != nil {
			return nil, noop, err
		}
		pin, err := signal.OpenGPIO(s.GPIOPin, pull)
		if err != nil {
			return nil, noop, fmt.Errorf("open gpio: %w", err)
		}
		src, err := signal.NewDigital(pin, s.ActiveLow)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("source: digital key", "pin", s.GPIOPin, "pull", s.GPIOPull, "active_low", s.ActiveLow)
		return src, noop, nil

	case config.SourceAnalog:
		sampler, input, closeSampler, err := openSampler(s)
		if err != nil {
			return nil, noop, fmt.Errorf("open adc: %w", err)
		}
		src, err := signal.NewAnalog(sampler, s.ADCThresholds())
		if err != nil {
			closeSampler()
			return nil, noop, err
		}
		th := src.Thresholds()
		logger.Info("source: analog key", "input", input, "low", th.Low, "high", th.High)
		return src, closeSampler, nil

	case config.SourceTone:
		g, err := dsp.NewGoertzel(dsp.GoertzelConfig{
			TargetFrequency: s.ToneFrequency,
			SampleRate:      s.SampleRate,
			BlockSize:       s.BlockSize,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("tone filter: %w", err)
		}
		gate, err := dsp.NewGate(dsp.GateConfig{
			Thresholds: s.ToneThresholds(),
			AGCEnabled: s.AGCEnabled,
			AGCDecay:   s.AGCDecay,
			AGCAttack:  s.AGCAttack,
			AGCFloor:   s.AGCFloor,
		}, g)
		if err != nil {
			return nil, noop, fmt.Errorf("tone gate: %w", err)
		}
		src, err := audio.OpenTone(audio.Config{
			DeviceIndex: s.DeviceIndex,
			SampleRate:  uint32(s.SampleRate),
			BufferSize:  uint32(s.BufferSize),
		}, gate)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("source: sidetone", "frequency", s.ToneFrequency, "sample_rate", s.SampleRate, "block_size", s.BlockSize)
		return src, func() { _ = src.Close() }, nil

	case config.SourceSimulated:
		src, err := signal.NewSimulated(cw.Encode(demoText), signal.DefaultKeying(), clk)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("source: simulated", "text", demoText, "duration", src.Duration())
		return src, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown source %q", s.Source)
}

// openSampler prefers a periph ADC pin over the sysfs channel when adc_pin is set.
func openSampler(s *config.Settings) (signal.Sampler, string, func(), error) {
	if s.ADCPin != "" {
		p, err := signal.OpenPinADC(s.ADCPin)
		if err != nil {
			return nil, "", nil, err
		}
		return p, s.ADCPin, func() {}, nil
	}
	f, err := signal.OpenIIO(s.ADCPath)
	if err != nil {
		return nil, "", nil, err
	}
	return f, s.ADCPath, func() { _ = f.Close() }, nil
}
