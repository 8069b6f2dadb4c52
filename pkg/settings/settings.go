// Package settings defines the persisted user settings of the controller.
// The record is a fixed-size struct with zero-allocation binary serialization.
package settings

import (
	"encoding/binary"
	"errors"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/board"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
)

// CurrentVersion is the settings format version.
// Bump this when making breaking changes to the layout.
// When firmware boots and finds a different version in flash, settings are wiped.
const CurrentVersion uint16 = 1

// Size is the encoded size of Settings.
const Size = 32

// UsbMode selects the USB device the controller presents itself as.
type UsbMode uint8

const (
	UsbModeSwitchTatacon UsbMode = iota
	UsbModeSwitchHoripad
	UsbModeDualShock3
	UsbModePS4Tatacon
	UsbModeDualShock4
	UsbModeXbox360
	UsbModeMIDI
	UsbModeKeyboardP1
	UsbModeKeyboardP2
	UsbModeDebug

	usbModeCount
)

var usbModeNames = [usbModeCount]string{
	"Switch Tatacon",
	"Switch Horipad",
	"Dualshock 3",
	"PS4 Tatacon",
	"Dualshock 4",
	"Xbox 360",
	"MIDI",
	"Keyboard P1",
	"Keyboard P2",
	"Debug",
}

func (m UsbMode) String() string {
	if m >= usbModeCount {
		return "Unknown"
	}
	return usbModeNames[m]
}

// Valid reports whether m is a known mode.
func (m UsbMode) Valid() bool {
	return m < usbModeCount
}

// Flags
const (
	FlagLedEnablePlayerColor uint8 = 1 << 0
)

// Settings is the persisted record.
// Total size: 32 bytes
// Layout:
//
//	[0-1]:   Version (uint16)
//	[2]:     UsbMode (uint8)
//	[3]:     DoubleTriggerMode (uint8)
//	[4-11]:  TriggerThresholds (4x uint16: DonL, KaL, DonR, KaR)
//	[12-19]: DoubleTriggerThresholds (4x uint16)
//	[20-21]: DebounceDelayMs (uint16)
//	[22-25]: RollCounterTimeoutMs (uint32)
//	[26]:    LedBrightness (uint8)
//	[27]:    Flags (uint8)
//	[28-31]: Reserved
type Settings struct {
	Version                 uint16
	UsbMode                 UsbMode
	DoubleTriggerMode       drum.DoubleTriggerMode
	TriggerThresholds       drum.Thresholds
	DoubleTriggerThresholds drum.Thresholds
	DebounceDelayMs         uint16
	RollCounterTimeoutMs    uint32
	LedBrightness           uint8
	Flags                   uint8
	Reserved                uint32
}

// Errors
var (
	ErrInvalidSize    = errors.New("invalid settings size")
	ErrInvalidMode    = errors.New("invalid double trigger mode")
	ErrInvalidUsbMode = errors.New("invalid usb mode")
)

// Default returns the factory settings.
func Default() Settings {
	led := board.LedConfig()
	s := Settings{
		Version:                 CurrentVersion,
		UsbMode:                 UsbModeSwitchTatacon,
		DoubleTriggerMode:       drum.DoubleTriggerOff,
		TriggerThresholds:       board.TriggerThresholds,
		DoubleTriggerThresholds: board.DoubleTriggerThresholds,
		DebounceDelayMs:         board.DebounceDelayMs,
		RollCounterTimeoutMs:    board.RollCounterTimeoutMs,
		LedBrightness:           led.Brightness,
	}
	s.SetLedEnablePlayerColor(led.EnablePlayerColor)
	return s
}

// LedEnablePlayerColor reports whether the idle LED shows the player color.
func (s *Settings) LedEnablePlayerColor() bool {
	return s.Flags&FlagLedEnablePlayerColor != 0
}

// SetLedEnablePlayerColor sets or clears FlagLedEnablePlayerColor.
func (s *Settings) SetLedEnablePlayerColor(enable bool) {
	if enable {
		s.Flags |= FlagLedEnablePlayerColor
	} else {
		s.Flags &^= FlagLedEnablePlayerColor
	}
}

// Validate checks the enumerated fields.
func (s *Settings) Validate() error {
	if !s.UsbMode.Valid() {
		return ErrInvalidUsbMode
	}
	if !s.DoubleTriggerMode.Valid() {
		return ErrInvalidMode
	}
	return nil
}

// ApplyTo copies the drum-related settings into cfg.
func (s *Settings) ApplyTo(cfg *drum.Config) {
	cfg.TriggerThresholds = s.TriggerThresholds
	cfg.DoubleTriggerMode = s.DoubleTriggerMode
	cfg.DoubleTriggerThresholds = s.DoubleTriggerThresholds
	cfg.DebounceDelayMs = s.DebounceDelayMs
	cfg.RollCounterTimeoutMs = s.RollCounterTimeoutMs
}

// PutThresholds encodes t into buf[0:8].
func PutThresholds(buf []byte, t drum.Thresholds) {
	binary.LittleEndian.PutUint16(buf[0:], t.DonLeft)
	binary.LittleEndian.PutUint16(buf[2:], t.KaLeft)
	binary.LittleEndian.PutUint16(buf[4:], t.DonRight)
	binary.LittleEndian.PutUint16(buf[6:], t.KaRight)
}

// Thresholds decodes buf[0:8].
func Thresholds(buf []byte) drum.Thresholds {
	return drum.Thresholds{
		DonLeft:  binary.LittleEndian.Uint16(buf[0:]),
		KaLeft:   binary.LittleEndian.Uint16(buf[2:]),
		DonRight: binary.LittleEndian.Uint16(buf[4:]),
		KaRight:  binary.LittleEndian.Uint16(buf[6:]),
	}
}

// MarshalBinary implements encoding.BinaryMarshaler for Settings.
func (s *Settings) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint16(buf[0:], s.Version)
	buf[2] = uint8(s.UsbMode)
	buf[3] = uint8(s.DoubleTriggerMode)
	PutThresholds(buf[4:], s.TriggerThresholds)
	PutThresholds(buf[12:], s.DoubleTriggerThresholds)
	binary.LittleEndian.PutUint16(buf[20:], s.DebounceDelayMs)
	binary.LittleEndian.PutUint32(buf[22:], s.RollCounterTimeoutMs)
	buf[26] = s.LedBrightness
	buf[27] = s.Flags
	binary.LittleEndian.PutUint32(buf[28:], s.Reserved)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Settings.
func (s *Settings) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return ErrInvalidSize
	}

	s.Version = binary.LittleEndian.Uint16(data[0:])
	s.UsbMode = UsbMode(data[2])
	s.DoubleTriggerMode = drum.DoubleTriggerMode(data[3])
	s.TriggerThresholds = Thresholds(data[4:])
	s.DoubleTriggerThresholds = Thresholds(data[12:])
	s.DebounceDelayMs = binary.LittleEndian.Uint16(data[20:])
	s.RollCounterTimeoutMs = binary.LittleEndian.Uint32(data[22:])
	s.LedBrightness = data[26]
	s.Flags = data[27]
	s.Reserved = binary.LittleEndian.Uint32(data[28:])
	return nil
}
