// Package controller reads the D-pad and button cluster, debounces every
// button and cleans simultaneous opposite directions on the D-pad.
package controller

import (
	"errors"

	"tinygo.org/x/drivers"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debounce"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/mcp23017"
)

// ButtonID identifies a physical button.
type ButtonID uint8

const (
	Up ButtonID = iota
	Down
	Left
	Right
	North
	East
	South
	West
	L
	R
	Start
	Select
	Home
	Share

	ButtonCount
)

// Pins maps every button to a GPIO line, indexed by ButtonID.
type Pins [ButtonCount]uint8

// Backend selects where the button lines are read from. InternalGpio and
// ExternalGpio are the only implementations.
type Backend interface {
	backend()
}

// InternalGpio reads the RP2040's own pins (pull-up, active low).
type InternalGpio struct{}

// ExternalGpio reads an MCP23017 expander.
type ExternalGpio struct {
	Bus     drivers.I2C
	Address uint16
}

func (InternalGpio) backend() {}
func (ExternalGpio) backend() {}

// Config configures the button engine.
type Config struct {
	Pins            Pins
	DebounceDelayMs uint16
	Backend         Backend
}

// GPIO returns the state of all lines, a set bit meaning pressed.
type GPIO interface {
	Read() (uint32, error)
}

var (
	ErrInvalidPin = errors.New("controller: pin out of range for backend")
	ErrNoBackend  = errors.New("controller: no gpio backend configured")
)

// Controller is the button engine.
type Controller struct {
	pins    Pins
	delay   uint16
	gpio    GPIO
	buttons [ButtonCount]debounce.Switch
	socd    socd
	faults  uint32
}

// New builds the GPIO backend selected by cfg.Backend.
func New(cfg Config) (*Controller, error) {
	var (
		gpio GPIO
		err  error
	)

	switch b := cfg.Backend.(type) {
	case InternalGpio:
		if err = cfg.Pins.validate(internalPinCount); err != nil {
			return nil, err
		}
		gpio, err = newInternal(cfg.Pins)
	case ExternalGpio:
		if err = cfg.Pins.validate(mcp23017.PinCount); err != nil {
			return nil, err
		}
		gpio, err = newExternal(b)
	default:
		return nil, ErrNoBackend
	}
	if err != nil {
		return nil, err
	}

	return NewWithGPIO(cfg.Pins, cfg.DebounceDelayMs, gpio), nil
}

// NewWithGPIO builds a controller over an already configured GPIO source.
func NewWithGPIO(pins Pins, debounceDelayMs uint16, gpio GPIO) *Controller {
	return &Controller{pins: pins, delay: debounceDelayMs, gpio: gpio}
}

func (p *Pins) validate(limit uint8) error {
	for _, pin := range p {
		if pin >= limit {
			return ErrInvalidPin
		}
	}
	return nil
}

// SetDebounceDelay changes the button debounce window.
func (c *Controller) SetDebounceDelay(ms uint16) {
	c.delay = ms
}

// Faults returns the number of failed GPIO reads.
func (c *Controller) Faults() uint32 {
	return c.faults
}

// UpdateInputState samples the buttons at time now (ms) and writes the
// controller part of state. On a read error every button keeps its previous
// state.
func (c *Controller) UpdateInputState(now uint32, state *input.State) {
	lines, err := c.gpio.Read()
	if err != nil {
		c.faults++
	} else {
		for id := range c.buttons {
			pressed := lines&(1<<c.pins[id]) != 0
			c.buttons[id].Set(pressed, uint32(c.delay), now)
		}
	}

	s := &state.Controller
	s.DPad = input.DPad{
		Up:    c.buttons[Up].Active(),
		Down:  c.buttons[Down].Active(),
		Left:  c.buttons[Left].Active(),
		Right: c.buttons[Right].Active(),
	}
	s.Buttons = input.Buttons{
		North:  c.buttons[North].Active(),
		East:   c.buttons[East].Active(),
		South:  c.buttons[South].Active(),
		West:   c.buttons[West].Active(),
		L:      c.buttons[L].Active(),
		R:      c.buttons[R].Active(),
		Start:  c.buttons[Start].Active(),
		Select: c.buttons[Select].Active(),
		Home:   c.buttons[Home].Active(),
		Share:  c.buttons[Share].Active(),
	}

	c.socd.clean(&s.DPad)
}

// expander adapts an MCP23017 to GPIO.
type expander struct {
	dev *mcp23017.Device
}

func newExternal(b ExternalGpio) (*expander, error) {
	if b.Bus == nil {
		return nil, ErrNoBackend
	}
	addr := b.Address
	if addr == 0 {
		addr = mcp23017.DefaultAddress
	}

	dev, err := mcp23017.New(b.Bus, addr)
	if err != nil {
		return nil, err
	}
	// All inputs with pull-ups, reversed so that a pressed button reads 1.
	if err := dev.SetDirection(0xFFFF); err != nil {
		return nil, err
	}
	if err := dev.SetPullup(0xFFFF); err != nil {
		return nil, err
	}
	if err := dev.SetReversePolarity(0xFFFF); err != nil {
		return nil, err
	}
	return &expander{dev: dev}, nil
}

func (e *expander) Read() (uint32, error) {
	v, err := e.dev.Read()
	return uint32(v), err
}
