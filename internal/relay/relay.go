package relay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrNotReady is returned by Pulse when the GPIO pin could not be initialized.
var ErrNotReady = errors.New("relay: gpio not ready")

// Pin is the subset of gpio.PinOut the relay drives.
type Pin interface {
	Out(l gpio.Level) error
}

// GPIO drives a relay wired to a single output pin.
type GPIO struct {
	name    string
	pin     Pin
	initErr error
	sleep   func(time.Duration)

	mu sync.Mutex
}

// NewGPIO initializes the host drivers and claims the named pin, holding it
// inactive. Initialization failures are retained and reported by every Pulse
// so that a missing board degrades to a soft failure.
func NewGPIO(name string, activeHigh bool) *GPIO {
	g := &GPIO{name: name, sleep: time.Sleep}

	if _, err := host.Init(); err != nil {
		g.initErr = fmt.Errorf("%w: initializing host: %v", ErrNotReady, err)
		return g
	}
	p := gpioreg.ByName(name)
	if p == nil {
		g.initErr = fmt.Errorf("%w: pin %q not found", ErrNotReady, name)
		return g
	}
	if err := p.Out(inactive(activeHigh)); err != nil {
		g.initErr = fmt.Errorf("%w: setting %s inactive: %v", ErrNotReady, name, err)
		return g
	}
	g.pin = p
	return g
}

// NewWithPin wraps an already configured pin.
func NewWithPin(name string, pin Pin, sleep func(time.Duration)) *GPIO {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &GPIO{name: name, pin: pin, sleep: sleep}
}

// Ready returns the initialization error, if any.
func (g *GPIO) Ready() error { return g.initErr }

// Name returns the pin name.
func (g *GPIO) Name() string { return g.name }

// Pulse drives the pin active for d, then releases it. The call blocks for the
// whole pulse and cannot be canceled.
func (g *GPIO) Pulse(d time.Duration, activeHigh bool) error {
	if g.initErr != nil {
		return g.initErr
	}
	if g.pin == nil {
		return ErrNotReady
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.pin.Out(active(activeHigh)); err != nil {
		return fmt.Errorf("relay %s: activating: %w", g.name, err)
	}
	g.sleep(d)
	if err := g.pin.Out(inactive(activeHigh)); err != nil {
		return fmt.Errorf("relay %s: releasing: %w", g.name, err)
	}
	return nil
}

func active(activeHigh bool) gpio.Level {
	if activeHigh {
		return gpio.High
	}
	return gpio.Low
}

func inactive(activeHigh bool) gpio.Level {
	return !active(activeHigh)
}
