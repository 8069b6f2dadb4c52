// Package input defines the canonical input state shared by the drum engine,
// the button engine, the report encoders, the status LED and the display.
package input

// PadID identifies one of the four drum sensors.
type PadID uint8

const (
	DonLeft PadID = iota
	KaLeft
	DonRight
	KaRight
)

// PadCount is the number of drum pads.
const PadCount = 4

// Pads lists every pad in PadID order.
var Pads = [PadCount]PadID{DonLeft, KaLeft, DonRight, KaRight}

// String returns a short name for the pad.
func (p PadID) String() string {
	switch p {
	case DonLeft:
		return "DonL"
	case KaLeft:
		return "KaL"
	case DonRight:
		return "DonR"
	case KaRight:
		return "KaR"
	default:
		return "?"
	}
}

// IsDon reports whether the pad is a center ("don") sensor.
func (p PadID) IsDon() bool {
	return p == DonLeft || p == DonRight
}

// Pad is the per-tick record of a single drum sensor.
type Pad struct {
	Triggered bool
	Raw       uint16 // sensor native range, 0-4095
	Analog    uint16 // windowed peak rescaled to 0-65535
}

// DrumState is the drum portion of the canonical input state.
type DrumState struct {
	Pads         [PadCount]Pad
	CurrentRoll  uint16
	PreviousRoll uint16
}

// Pad returns the record for the given pad.
func (d *DrumState) Pad(id PadID) Pad {
	return d.Pads[id]
}

// AnyTriggered reports whether at least one pad is triggered.
func (d *DrumState) AnyTriggered() bool {
	for i := range d.Pads {
		if d.Pads[i].Triggered {
			return true
		}
	}
	return false
}

// DPad holds the four cardinal directions.
type DPad struct {
	Up, Down, Left, Right bool
}

// Buttons holds the face, shoulder and system buttons.
type Buttons struct {
	North, East, South, West bool
	L, R                     bool
	Start, Select            bool
	Home, Share              bool
}

// ControllerState is the button/D-pad portion of the canonical input state.
type ControllerState struct {
	DPad    DPad
	Buttons Buttons
}

// State is the aggregate consumed by every downstream collaborator.
// It is rebuilt every tick; only the roll counters and debounce timestamps
// persist, inside their owning engines.
type State struct {
	Drum       DrumState
	Controller ControllerState
}

// ReleaseAll clears every input.
func (s *State) ReleaseAll() {
	s.Drum = DrumState{}
	s.Controller = ControllerState{}
}

// MenuHotkey reports whether the menu combination (Start + Select) is held.
func (c ControllerState) MenuHotkey() bool {
	return c.Buttons.Start && c.Buttons.Select
}
