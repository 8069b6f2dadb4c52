// Package board holds the compile-time hardware wiring and factory defaults
// of the DonCon controller board.
package board

import (
	"image/color"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/controller"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/led"
)

// Shared I2C bus (I2C1): button expander and display.
const (
	I2CSDAPin     = 14
	I2CSCLPin     = 15
	I2CFrequency  = 1000000
	ExpanderAddr  = 0x20
	DisplayAddr   = 0x3C
	DisplayWidth  = 128
	DisplayHeight = 64
)

// External ADC (MCP3204 on SPI1).
const (
	ADCMOSIPin               = 11
	ADCMISOPin               = 12
	ADCSCLKPin               = 10
	ADCChipSelectPin         = 13
	ADCLevelShifterEnablePin = 9
	ADCFrequency             = 2000000
)

// Internal ADC oversampling, used when the board has no external ADC.
const InternalSampleCount = 16

// Parts fitted on this board revision. Without them the drum is read through
// the internal ADC and the buttons through the RP2040 pins.
const (
	HasExternalADC  = true
	HasExternalGpio = true
)

// Status LED.
const (
	LedPin       = 16
	LedEnablePin = 25
)

// TriggerThresholds are the factory pad thresholds.
var TriggerThresholds = drum.Thresholds{DonLeft: 10, KaLeft: 5, DonRight: 10, KaRight: 5}

// DoubleTriggerThresholds are the factory thresholds of DoubleTriggerThreshold
// mode.
var DoubleTriggerThresholds = drum.Thresholds{DonLeft: 2000, KaLeft: 1500, DonRight: 2000, KaRight: 1500}

const (
	DebounceDelayMs      = 25
	RollCounterTimeoutMs = 500
)

// ADCChannels is the pad to ADC channel wiring.
var ADCChannels = drum.ChannelMap{
	input.DonLeft:  3,
	input.KaLeft:   2,
	input.DonRight: 0,
	input.KaRight:  1,
}

// DrumConfig returns the factory drum configuration, without a backend.
func DrumConfig() drum.Config {
	return drum.Config{
		TriggerThresholds:       TriggerThresholds,
		DoubleTriggerMode:       drum.DoubleTriggerOff,
		DoubleTriggerThresholds: DoubleTriggerThresholds,
		DebounceDelayMs:         DebounceDelayMs,
		RollCounterTimeoutMs:    RollCounterTimeoutMs,
		Channels:                ADCChannels,
	}
}

// ControllerPins are the expander lines of each button.
var ControllerPins = controller.Pins{
	controller.Up:     8,
	controller.Down:   9,
	controller.Left:   10,
	controller.Right:  11,
	controller.North:  0,
	controller.East:   3,
	controller.South:  1,
	controller.West:   2,
	controller.L:      12,
	controller.R:      4,
	controller.Start:  5,
	controller.Select: 13,
	controller.Home:   6,
	controller.Share:  14,
}

// ControllerConfig returns the button configuration, without a backend.
func ControllerConfig() controller.Config {
	return controller.Config{
		Pins:            ControllerPins,
		DebounceDelayMs: DebounceDelayMs,
	}
}

// LedConfig returns the factory status LED configuration.
func LedConfig() led.Config {
	return led.Config{
		IdleColor: color.RGBA{R: 128, G: 128, B: 128},
		PadColors: [input.PadCount]color.RGBA{
			input.DonLeft:  {R: 255},
			input.KaLeft:   {B: 255},
			input.DonRight: {R: 255, G: 255},
			input.KaRight:  {G: 255, B: 255},
		},
		Brightness:        255,
		EnablePlayerColor: true,
	}
}
