// Package report encodes the canonical input state into the USB reports sent
// by the acquisition core.
//
// Encoders are stateless apart from their scratch buffer and must only be used
// from a single goroutine.
package report

import (
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
)

// HID report IDs of the composite descriptor.
const (
	IDKeyboard    = 0x02
	IDPlayerColor = 0x03 // output report, host to device
	IDGamepad     = 0x04
)

// Encoder serializes one tick of input.
type Encoder interface {
	// Encode returns the report for s. The returned slice is only valid
	// until the next call.
	Encode(s *input.State) []byte
}

// ForMode returns the encoder used for a USB mode. Every console mode is
// served by the generic gamepad report.
func ForMode(m settings.UsbMode) Encoder {
	switch m {
	case settings.UsbModeKeyboardP1:
		return NewKeyboard(PlayerOne)
	case settings.UsbModeKeyboardP2:
		return NewKeyboard(PlayerTwo)
	case settings.UsbModeDebug:
		return NewDebug()
	default:
		return NewGamepad()
	}
}

// Hat values, clockwise from up. HatCentered is the null state.
const (
	HatUp uint8 = iota
	HatUpRight
	HatRight
	HatDownRight
	HatDown
	HatDownLeft
	HatLeft
	HatUpLeft
	HatCentered
)

// Hat converts a D-pad to a hat switch value.
func Hat(d input.DPad) uint8 {
	switch {
	case d.Up && d.Right:
		return HatUpRight
	case d.Down && d.Right:
		return HatDownRight
	case d.Down && d.Left:
		return HatDownLeft
	case d.Up && d.Left:
		return HatUpLeft
	case d.Up:
		return HatUp
	case d.Right:
		return HatRight
	case d.Down:
		return HatDown
	case d.Left:
		return HatLeft
	}
	return HatCentered
}
