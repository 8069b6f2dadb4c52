package report

import "github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"

// Button bits of the gamepad report, in Switch order.
const (
	BitY       = 0
	BitB       = 1
	BitA       = 2
	BitX       = 3
	BitL       = 4
	BitR       = 5
	BitZL      = 6
	BitZR      = 7
	BitMinus   = 8
	BitPlus    = 9
	BitLStick  = 10
	BitRStick  = 11
	BitHome    = 12
	BitCapture = 13
)

// GamepadSize is the length of a gamepad report including its ID.
//
//	[0]    report ID
//	[1-2]  buttons (little-endian)
//	[3]    hat
//	[4-7]  analog DonL, KaL, DonR, KaR (0-255)
const GamepadSize = 8

// Gamepad encodes the generic HID gamepad report. Don pads map to the stick
// clicks and ka pads to the triggers, like a Taiko drum on Switch.
type Gamepad struct {
	buf [GamepadSize]byte
}

func NewGamepad() *Gamepad {
	return &Gamepad{}
}

func bit(on bool, n uint) uint16 {
	if on {
		return 1 << n
	}
	return 0
}

// Buttons returns the button bitmap for s.
func Buttons(s *input.State) uint16 {
	b := &s.Controller.Buttons
	d := &s.Drum
	return bit(b.West, BitY) |
		bit(b.South, BitB) |
		bit(b.East, BitA) |
		bit(b.North, BitX) |
		bit(b.L, BitL) |
		bit(b.R, BitR) |
		bit(d.Pads[input.KaLeft].Triggered, BitZL) |
		bit(d.Pads[input.KaRight].Triggered, BitZR) |
		bit(b.Select, BitMinus) |
		bit(b.Start, BitPlus) |
		bit(d.Pads[input.DonLeft].Triggered, BitLStick) |
		bit(d.Pads[input.DonRight].Triggered, BitRStick) |
		bit(b.Home, BitHome) |
		bit(b.Share, BitCapture)
}

func (g *Gamepad) Encode(s *input.State) []byte {
	buttons := Buttons(s)
	g.buf[0] = IDGamepad
	g.buf[1] = byte(buttons)
	g.buf[2] = byte(buttons >> 8)
	g.buf[3] = Hat(s.Controller.DPad)
	for i, p := range s.Drum.Pads {
		g.buf[4+i] = byte(p.Analog >> 8)
	}
	return g.buf[:]
}
