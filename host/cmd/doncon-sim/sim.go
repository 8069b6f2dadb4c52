package main

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/board"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/controller"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
)

// padKeys are the usual taiko keyboard layout.
var padKeys = map[byte]input.PadID{
	'd': input.KaLeft,
	'f': input.DonLeft,
	'j': input.DonRight,
	'k': input.KaRight,
}

var buttonKeys = map[byte]controller.ButtonID{
	'\r': controller.Start,
	'\t': controller.Select,
	'1':  controller.South,
	'2':  controller.East,
	'3':  controller.West,
	'4':  controller.North,
	'q':  controller.L,
	'e':  controller.R,
	'h':  controller.Home,
}

// Arrow keys arrive as ESC [ A..D.
var arrowKeys = map[byte]controller.ButtonID{
	'A': controller.Up,
	'B': controller.Down,
	'C': controller.Right,
	'D': controller.Left,
}

// sensors fakes the piezo front end: a hit peaks at once and fades out
// linearly over decay.
type sensors struct {
	mu    sync.Mutex
	hits  [adc.ChannelCount]time.Time
	peak  uint16
	decay time.Duration
	now   func() time.Time
}

func newSensors(peak uint16, decay time.Duration) *sensors {
	return &sensors{peak: peak, decay: decay, now: time.Now}
}

func (s *sensors) hit(id input.PadID) {
	s.mu.Lock()
	s.hits[board.ADCChannels[id]] = s.now()
	s.mu.Unlock()
}

func (s *sensors) ReadChannel(ch uint8) (uint16, error) {
	if ch >= adc.ChannelCount {
		return 0, adc.ErrInvalidChannel
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.hits[ch]
	if t.IsZero() {
		return 0, nil
	}
	since := s.now().Sub(t)
	if since >= s.decay {
		return 0, nil
	}
	return uint16(int64(s.peak) * int64(s.decay-since) / int64(s.decay)), nil
}

// keypad fakes the button lines. Terminals report no key release, so a key
// counts as held for hold after it was typed.
type keypad struct {
	mu    sync.Mutex
	typed [32]time.Time
	hold  time.Duration
	now   func() time.Time
}

func newKeypad(hold time.Duration) *keypad {
	return &keypad{hold: hold, now: time.Now}
}

func (k *keypad) press(id controller.ButtonID) {
	k.mu.Lock()
	k.typed[board.ControllerPins[id]] = k.now()
	k.mu.Unlock()
}

// Read implements controller.GPIO.
func (k *keypad) Read() (uint32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var v uint32
	now := k.now()
	for line, t := range k.typed {
		if !t.IsZero() && now.Sub(t) < k.hold {
			v |= 1 << line
		}
	}
	return v, nil
}

// decoder routes typed bytes to the sensors and the keypad.
type decoder struct {
	sensors *sensors
	keypad  *keypad
	esc     int
}

// feed handles one byte and reports whether the user asked to quit.
func (d *decoder) feed(b byte) (quit bool) {
	switch d.esc {
	case 1:
		if b == '[' {
			d.esc = 2
			return false
		}
		d.esc = 0
	case 2:
		d.esc = 0
		if id, ok := arrowKeys[b]; ok {
			d.keypad.press(id)
		}
		return false
	}

	switch {
	case b == 0x1b:
		d.esc = 1
	case b == 0x03 || b == 'x':
		return true
	default:
		if id, ok := padKeys[b]; ok {
			d.sensors.hit(id)
		} else if id, ok := buttonKeys[b]; ok {
			d.keypad.press(id)
		}
	}
	return false
}

// console is the USB transport of the simulator: it prints each report that
// differs from the previous one.
type console struct {
	mu   sync.Mutex
	out  io.Writer
	text bool
	last []byte
	sent uint32
}

func (c *console) SendReport(r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent++
	if bytes.Equal(r, c.last) {
		return nil
	}
	c.last = append(c.last[:0], r...)

	var err error
	if c.text {
		// Raw mode terminals need the carriage return.
		_, err = c.out.Write(bytes.ReplaceAll(r, []byte("\n"), []byte("\r\n")))
	} else {
		_, err = fmt.Fprintf(c.out, "% x\r\n", r)
	}
	return err
}
