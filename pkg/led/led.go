// Package led drives the single status pixel: it lights up in the mixed
// color of the triggered pads and otherwise shows the player or idle color.
package led

import (
	"image/color"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
)

// Sink writes pixel colors. ws2812.Device satisfies it.
type Sink interface {
	WriteColors(buf []color.RGBA) error
}

// Config holds the pad colors and output options.
type Config struct {
	IdleColor         color.RGBA
	PadColors         [input.PadCount]color.RGBA // indexed by input.PadID
	Brightness        uint8
	EnablePlayerColor bool
}

// StatusLed mixes the pixel color from the drum state.
type StatusLed struct {
	cfg    Config
	sink   Sink
	drum   input.DrumState
	player *color.RGBA
	buf    [1]color.RGBA
	last   color.RGBA
	wrote  bool
}

// New returns a status LED writing to sink.
func New(cfg Config, sink Sink) *StatusLed {
	return &StatusLed{cfg: cfg, sink: sink}
}

// SetDrumState stores the state shown by the next Update.
func (l *StatusLed) SetDrumState(d input.DrumState) {
	l.drum = d
}

// SetBrightness sets the output scale, 255 being full brightness.
func (l *StatusLed) SetBrightness(b uint8) {
	l.cfg.Brightness = b
}

// SetEnablePlayerColor enables showing the host-assigned player color while
// idle.
func (l *StatusLed) SetEnablePlayerColor(enable bool) {
	l.cfg.EnablePlayerColor = enable
}

// SetPlayerColor sets the color announced by the host.
func (l *StatusLed) SetPlayerColor(c color.RGBA) {
	l.player = &c
}

// Color returns the color Update would write now.
func (l *StatusLed) Color() color.RGBA {
	var r, g, b, n uint16
	for id, p := range l.drum.Pads {
		if !p.Triggered {
			continue
		}
		c := l.cfg.PadColors[id]
		r += uint16(c.R)
		g += uint16(c.G)
		b += uint16(c.B)
		n++
	}

	var c color.RGBA
	switch {
	case n > 0:
		c = color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)}
	case l.cfg.EnablePlayerColor && l.player != nil:
		c = *l.player
	default:
		c = l.cfg.IdleColor
	}
	return scale(c, l.cfg.Brightness)
}

// Update writes the current color if it changed.
func (l *StatusLed) Update() error {
	c := l.Color()
	if l.wrote && c == l.last {
		return nil
	}
	l.buf[0] = c
	if err := l.sink.WriteColors(l.buf[:]); err != nil {
		return err
	}
	l.last = c
	l.wrote = true
	return nil
}

func scale(c color.RGBA, brightness uint8) color.RGBA {
	f := uint16(brightness)
	return color.RGBA{
		R: uint8(uint16(c.R) * f / 255),
		G: uint8(uint16(c.G) * f / 255),
		B: uint8(uint16(c.B) * f / 255),
		A: 0xFF,
	}
}
