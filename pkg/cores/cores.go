// Package cores runs the two loops of the firmware.
//
// The acquisition loop owns the analog front end and the USB reports and must
// stay real time. The peripheral loop owns the buttons, the status LED, the
// display and the flash. They only share the slots of Channels, each with one
// writer and one reader.
package cores

import (
	"image/color"
	"time"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/mailbox"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
)

// ControlKind identifies a control message.
type ControlKind uint8

const (
	// Acquisition to peripheral.
	EnterMenu ControlKind = iota + 1
	ExitMenu
	SetPlayerColor
	SetUsbMode
)

func (k ControlKind) String() string {
	switch k {
	case EnterMenu:
		return "EnterMenu"
	case ExitMenu:
		return "ExitMenu"
	case SetPlayerColor:
		return "SetPlayerColor"
	case SetUsbMode:
		return "SetUsbMode"
	default:
		return "Unknown"
	}
}

// Control is a message from the acquisition loop that must not be lost.
// Only the fields of its Kind are meaningful.
type Control struct {
	Kind    ControlKind
	Player  uint8
	Color   color.RGBA
	UsbMode settings.UsbMode
}

// Channels connects the two loops.
//
// Only ToPeripheral blocks, and the peripheral loop never blocks on the
// acquisition loop: settings travel as full records in a latest-value slot,
// so a newer record replacing an unread one loses nothing.
type Channels struct {
	Drum         *mailbox.Mailbox[input.DrumState]
	Buttons      *mailbox.Mailbox[input.ControllerState]
	Settings     *mailbox.Mailbox[settings.Settings]
	ToPeripheral *mailbox.Queue[Control]
}

func NewChannels() *Channels {
	return &Channels{
		Drum:         mailbox.New[input.DrumState](),
		Buttons:      mailbox.New[input.ControllerState](),
		Settings:     mailbox.New[settings.Settings](),
		ToPeripheral: mailbox.NewQueue[Control](),
	}
}

// Close unblocks a pending control send.
func (c *Channels) Close() {
	c.ToPeripheral.Close()
}

// Stage names one step of a tick.
type Stage uint8

const (
	StageAcquireDrum Stage = iota
	StageAcquireButtons
	StageDrainControlQueue
	StageApplySettings
	StagePublishReport

	StageScanButtons
	StageDrainState
	StageDrainControl
	StagePersist
	StageRender
)

var stageNames = [...]string{
	StageAcquireDrum:       "AcquireDrum",
	StageAcquireButtons:    "AcquireButtons",
	StageDrainControlQueue: "DrainControlQueue",
	StageApplySettings:     "ApplySettings",
	StagePublishReport:     "PublishReport",
	StageScanButtons:       "ScanButtons",
	StageDrainState:        "DrainState",
	StageDrainControl:      "DrainControl",
	StagePersist:           "Persist",
	StageRender:            "Render",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "Unknown"
}

// Clock returns a millisecond timestamp that may wrap.
type Clock func() uint32

// SystemClock counts milliseconds since its creation.
func SystemClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// Tracer observes the stages of a tick.
type Tracer func(Stage)
