package protocol

import (
	"encoding/binary"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
)

// ThresholdsSize is the encoded size of drum.Thresholds.
const ThresholdsSize = 8

// padSize is [Triggered:1][Raw:2][Analog:2].
const padSize = 5

// DrumStateSize is the encoded size of input.DrumState.
//
//	[0-19]:  four pads in PadID order, [Triggered:1][Raw:2][Analog:2] each
//	[20-21]: CurrentRoll
//	[22-23]: PreviousRoll
const DrumStateSize = input.PadCount*padSize + 4

// PutDrumState encodes d into buf[0:DrumStateSize].
func PutDrumState(buf []byte, d input.DrumState) {
	for i, p := range d.Pads {
		b := buf[i*padSize:]
		b[0] = 0
		if p.Triggered {
			b[0] = 1
		}
		binary.LittleEndian.PutUint16(b[1:], p.Raw)
		binary.LittleEndian.PutUint16(b[3:], p.Analog)
	}
	binary.LittleEndian.PutUint16(buf[20:], d.CurrentRoll)
	binary.LittleEndian.PutUint16(buf[22:], d.PreviousRoll)
}

// DrumStateFrom decodes buf. ok is false when buf is too short.
func DrumStateFrom(buf []byte) (d input.DrumState, ok bool) {
	if len(buf) < DrumStateSize {
		return d, false
	}
	for i := range d.Pads {
		b := buf[i*padSize:]
		d.Pads[i] = input.Pad{
			Triggered: b[0] != 0,
			Raw:       binary.LittleEndian.Uint16(b[1:]),
			Analog:    binary.LittleEndian.Uint16(b[3:]),
		}
	}
	d.CurrentRoll = binary.LittleEndian.Uint16(buf[20:])
	d.PreviousRoll = binary.LittleEndian.Uint16(buf[22:])
	return d, true
}
