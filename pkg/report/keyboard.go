package report

import "github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"

// Player selects the keyboard layout.
type Player uint8

const (
	PlayerOne Player = iota
	PlayerTwo
)

// HID keyboard usage IDs.
const (
	keyB         = 0x05
	keyC         = 0x06
	keyD         = 0x07
	keyE         = 0x08
	keyF         = 0x09
	keyJ         = 0x0D
	keyK         = 0x0E
	keyL         = 0x0F
	keyN         = 0x11
	keyP         = 0x13
	keyQ         = 0x14
	keyEnter     = 0x28
	keyEscape    = 0x29
	keyBackspace = 0x2A
	keyTab       = 0x2B
	keyComma     = 0x36
	keyRight     = 0x4F
	keyLeft      = 0x50
	keyDown      = 0x51
	keyUp        = 0x52
)

// KeyboardSize is the length of a keyboard report including its ID.
//
//	[0]    report ID
//	[1]    modifiers
//	[2]    reserved
//	[3-8]  up to six keycodes
const KeyboardSize = 9

// MaxKeys is the rollover of the boot keyboard report. Keys beyond it are
// dropped in pad, D-pad, button order.
const MaxKeys = 6

// Keyboard encodes a boot keyboard report.
type Keyboard struct {
	pads [input.PadCount]uint8
	buf  [KeyboardSize]byte
	n    int
}

// NewKeyboard returns an encoder with the pad keys of the given player.
func NewKeyboard(p Player) *Keyboard {
	k := &Keyboard{}
	if p == PlayerTwo {
		k.pads = [input.PadCount]uint8{
			input.DonLeft:  keyB,
			input.KaLeft:   keyC,
			input.DonRight: keyN,
			input.KaRight:  keyComma,
		}
	} else {
		k.pads = [input.PadCount]uint8{
			input.DonLeft:  keyF,
			input.KaLeft:   keyD,
			input.DonRight: keyJ,
			input.KaRight:  keyK,
		}
	}
	return k
}

func (k *Keyboard) key(on bool, code uint8) {
	if on && k.n < MaxKeys {
		k.buf[3+k.n] = code
		k.n++
	}
}

func (k *Keyboard) Encode(s *input.State) []byte {
	k.buf = [KeyboardSize]byte{IDKeyboard}
	k.n = 0

	for i, p := range s.Drum.Pads {
		k.key(p.Triggered, k.pads[i])
	}

	d := &s.Controller.DPad
	k.key(d.Up, keyUp)
	k.key(d.Down, keyDown)
	k.key(d.Left, keyLeft)
	k.key(d.Right, keyRight)

	b := &s.Controller.Buttons
	k.key(b.North, keyL)
	k.key(b.East, keyBackspace)
	k.key(b.South, keyEnter)
	k.key(b.West, keyP)
	k.key(b.L, keyQ)
	k.key(b.R, keyE)
	k.key(b.Start, keyEscape)
	k.key(b.Select, keyTab)

	return k.buf[:]
}
