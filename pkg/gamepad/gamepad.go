//go:build tinygo

// Package gamepad sends encoded reports over the composite HID interface and
// receives the player color output report.
package gamepad

import (
	"errors"
	"image/color"
	"machine"
	"machine/usb/descriptor"
	"machine/usb/hid"
	"sync/atomic"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/composite"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/report"
)

var (
	ErrNotConfigured = errors.New("gamepad: usb not configured")
	ErrTooLarge      = errors.New("gamepad: report too large")
)

// slotSize holds the largest report (keyboard, 9 bytes).
const slotSize = 16

// slotCount matches the depth of hid.RingBuffer, which keeps the slices it
// is given.
const slotCount = 8

// Gamepad is the HID transport. It implements cores.Transport and
// cores.PlayerSource.
type Gamepad struct {
	buf     *hid.RingBuffer
	slots   [slotCount][slotSize]byte
	next    int
	waitTxc bool

	// known<<32 | player<<24 | R<<16 | G<<8 | B, written from the USB
	// interrupt.
	player atomic.Uint64
	drops  atomic.Uint32
}

var gamepadInstance *Gamepad

// Port installs the composite descriptor and registers the HID handler on
// first use.
func Port() *Gamepad {
	if gamepadInstance == nil {
		gamepadInstance = &Gamepad{
			buf: hid.NewRingBuffer(),
		}
		descriptor.CDCHID = composite.USBDescriptor
		hid.SetHandler(gamepadInstance)
	}
	return gamepadInstance
}

// TxHandler is called by the USB interrupt when the endpoint is ready to transmit
func (g *Gamepad) TxHandler() bool {
	g.waitTxc = false
	if b, ok := g.buf.Get(); ok {
		g.waitTxc = true
		hid.SendUSBPacket(b)
		return true
	}
	return false
}

// RxHandler takes the player color output report.
func (g *Gamepad) RxHandler(b []byte) bool {
	if len(b) < composite.PlayerColorSize || b[0] != report.IDPlayerColor {
		return false
	}
	v := uint64(1)<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
	g.player.Store(v)
	return true
}

// Player returns the player number and color last set by the host.
func (g *Gamepad) Player() (uint8, color.RGBA, bool) {
	v := g.player.Load()
	if v>>32 == 0 {
		return 0, color.RGBA{}, false
	}
	return uint8(v >> 24), color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, true
}

// SendReport copies r and sends it, queuing while the endpoint is busy.
func (g *Gamepad) SendReport(r []byte) error {
	if len(r) > slotSize {
		return ErrTooLarge
	}
	if !machine.USBDev.InitEndpointComplete {
		return ErrNotConfigured
	}

	slot := g.slots[g.next][:len(r)]
	g.next = (g.next + 1) % slotCount
	copy(slot, r)

	if g.waitTxc {
		// USB busy, queue for later
		if !g.buf.Put(slot) {
			g.drops.Add(1)
		}
		return nil
	}
	g.waitTxc = true
	hid.SendUSBPacket(slot)
	return nil
}

// Drops returns the number of reports lost to a full queue.
func (g *Gamepad) Drops() uint32 {
	return g.drops.Load()
}
