//go:build tinygo

package controller

import "machine"

const internalPinCount = 30

// pins reads RP2040 GPIOs configured as pulled-up inputs.
type pins struct {
	lines [ButtonCount]machine.Pin
	mask  uint32
}

func newInternal(p Pins) (GPIO, error) {
	g := &pins{}
	for id, n := range p {
		pin := machine.Pin(n)
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		g.lines[id] = pin
		g.mask |= 1 << n
	}
	return g, nil
}

// Read returns a bitmap indexed by GPIO number. Buttons pull the line low.
func (g *pins) Read() (uint32, error) {
	var v uint32
	for _, pin := range g.lines {
		if !pin.Get() {
			v |= 1 << uint8(pin)
		}
	}
	return v & g.mask, nil
}
