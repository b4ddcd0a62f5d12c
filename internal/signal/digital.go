package signal

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrUnknownPin indicates the GPIO name did not resolve on this host
var ErrUnknownPin = errors.New("unknown gpio pin")

// Pin reports the logic level of an input line.
type Pin interface {
	Read() bool
}

// PinFunc adapts a plain function to a Pin.
type PinFunc func() bool

// Read calls f.
func (f PinFunc) Read() bool {
	return f()
}

// Digital maps a binary pin straight to a level. There is no dead zone;
// noise must be handled by the pull resistor wiring.
type Digital struct {
	pin       Pin
	activeLow bool
}

// NewDigital creates a digital source. With activeLow set, a low pin means the key is down.
func NewDigital(pin Pin, activeLow bool) (*Digital, error) {
	if pin == nil {
		return nil, ErrPinRequired
	}
	return &Digital{pin: pin, activeLow: activeLow}, nil
}

// Read samples the pin.
func (d *Digital) Read() Level {
	if d.pin.Read() != d.activeLow {
		return Asserted
	}
	return Deasserted
}

// ParsePull maps a config value to a periph pull setting.
func ParsePull(s string) (gpio.Pull, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	case "none", "float", "":
		return gpio.Float, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("gpio pull must be up, down or none, got %q", s)
	}
}

type gpioPin struct {
	p gpio.PinIn
}

func (g gpioPin) Read() bool {
	return g.p.Read() == gpio.High
}

// OpenGPIO initializes the periph host drivers and configures name as an input.
func OpenGPIO(name string, pull gpio.Pull) (Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPin, name)
	}
	if err := p.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", name, err)
	}
	return gpioPin{p: p}, nil
}
