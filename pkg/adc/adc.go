// Package adc provides the raw sample sources feeding the drum engine.
//
// Two acquisition strategies exist. Oversampler reads every channel
// SampleCount times in a blocking pass and averages. MaxHold runs a
// free-running conversion loop against an MCP3204 and keeps, per channel, the
// highest reading seen since the consumer last collected.
//
// The concrete strategy is picked once through a Backend value passed to New.
package adc

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// ChannelCount is the number of analog channels acquired per collect.
const ChannelCount = 4

// MaxValue is the largest 12-bit reading.
const MaxValue = 4095

// Errors
var (
	ErrInvalidChannel     = errors.New("adc: invalid channel")
	ErrInvalidSampleCount = errors.New("adc: sample count must be at least 1")
	ErrBusFault           = errors.New("adc: bus transfer failed")
	ErrNotRunning         = errors.New("adc: acquisition not running")
	ErrNoBackend          = errors.New("adc: no backend configured")
)

// Sampler collects one reading per ADC channel, indexed by channel number.
// On error the returned values must not be used.
type Sampler interface {
	Collect() ([ChannelCount]uint16, error)
}

// ChannelReader performs a single blocking conversion.
type ChannelReader interface {
	ReadChannel(ch uint8) (uint16, error)
}

// Pin is an output line such as a chip select. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
}

// Scheduler runs f once after d. The max-hold loop uses it to rearm the next
// conversion after the chip-select dead time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Backend selects the acquisition strategy. The set is closed: Oversampled
// and Continuous are the only implementations.
type Backend interface {
	backend()
}

// Oversampled averages SampleCount blocking reads per channel.
type Oversampled struct {
	Reader      ChannelReader
	SampleCount uint8
}

// Continuous drives an MCP3204 in max-hold mode.
type Continuous struct {
	Bus                drivers.SPI
	ChipSelect         Pin
	LevelShifterEnable Pin       // optional
	Scheduler          Scheduler // nil means TimerScheduler
}

func (Oversampled) backend() {}
func (Continuous) backend()  {}

// New builds and starts the sampler for the given backend.
func New(b Backend) (Sampler, error) {
	switch b := b.(type) {
	case Oversampled:
		return NewOversampler(b.Reader, b.SampleCount)
	case *Oversampled:
		return NewOversampler(b.Reader, b.SampleCount)
	case Continuous:
		return newContinuous(&b)
	case *Continuous:
		return newContinuous(b)
	default:
		return nil, ErrNoBackend
	}
}

func newContinuous(c *Continuous) (*MaxHold, error) {
	if c.Bus == nil || c.ChipSelect == nil {
		return nil, ErrNoBackend
	}
	m := NewMaxHold(c.Bus, c.ChipSelect, c.LevelShifterEnable, c.Scheduler)
	m.Start()
	return m, nil
}
