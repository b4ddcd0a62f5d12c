package signal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/pin/pinreg"
	"periph.io/x/host/v3"
)

// ErrNotADC indicates the named header pin exists but cannot sample voltage
var ErrNotADC = errors.New("pin is not an adc input")

// MaxSample is the top of the 12-bit ADC range.
const MaxSample = 4095

// Sampler returns one raw ADC reading.
type Sampler interface {
	Sample() (int, error)
}

// Analog classifies ADC samples through a dead zone.
type Analog struct {
	sampler    Sampler
	thresholds Thresholds
}

// NewAnalog creates an analog source. Thresholds are in raw sample units.
func NewAnalog(sampler Sampler, thresholds Thresholds) (*Analog, error) {
	if sampler == nil {
		return nil, ErrSamplerRequired
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Analog{sampler: sampler, thresholds: thresholds}, nil
}

// Read takes one sample. A failed read is treated like noise.
func (a *Analog) Read() Level {
	v, err := a.sampler.Sample()
	if err != nil {
		return Indeterminate
	}
	return a.thresholds.Classify(float64(v))
}

// Thresholds returns the configured dead zone.
func (a *Analog) Thresholds() Thresholds {
	return a.thresholds
}

// IIOSampler reads a Linux industrial I/O raw channel, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
// The file is kept open and re-read from offset zero on every sample.
type IIOSampler struct {
	f   *os.File
	buf [16]byte
}

// OpenIIO opens the raw channel file at path.
func OpenIIO(path string) (*IIOSampler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open adc channel: %w", err)
	}
	return &IIOSampler{f: f}, nil
}

// Sample reads and parses the current raw value.
func (s *IIOSampler) Sample() (int, error) {
	n, err := s.f.ReadAt(s.buf[:], 0)
	if n == 0 && err != nil {
		return 0, fmt.Errorf("read adc channel: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(s.buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("parse adc sample: %w", err)
	}
	return v, nil
}

// Close releases the channel file.
func (s *IIOSampler) Close() error {
	return s.f.Close()
}

// PinADCSampler adapts a periph.io ADC pin to a Sampler using its raw count.
type PinADCSampler struct {
	Pin analog.PinADC
}

// Sample reads the pin's raw value.
func (s PinADCSampler) Sample() (int, error) {
	sample, err := s.Pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.Pin, err)
	}
	return int(sample.Raw), nil
}

// OpenPinADC initializes the periph host drivers and looks up an ADC input
// by name on the registered headers.
func OpenPinADC(name string) (PinADCSampler, error) {
	if _, err := host.Init(); err != nil {
		return PinADCSampler{}, fmt.Errorf("init adc host: %w", err)
	}
	p, err := lookupPinADC(name)
	if err != nil {
		return PinADCSampler{}, err
	}
	return PinADCSampler{Pin: p}, nil
}

func lookupPinADC(name string) (analog.PinADC, error) {
	found := false
	for _, rows := range pinreg.All() {
		for _, row := range rows {
			for _, p := range row {
				if p.Name() != name && p.String() != name {
					continue
				}
				if a, ok := p.(analog.PinADC); ok {
					return a, nil
				}
				found = true
			}
		}
	}
	if found {
		return nil, fmt.Errorf("%w: %s", ErrNotADC, name)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPin, name)
}
