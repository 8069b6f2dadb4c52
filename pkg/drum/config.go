package drum

import (
	"errors"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
)

// Thresholds holds one raw-sample threshold per pad.
type Thresholds struct {
	DonLeft  uint16
	KaLeft   uint16
	DonRight uint16
	KaRight  uint16
}

// For returns the threshold of the given pad.
func (t Thresholds) For(id input.PadID) uint16 {
	switch id {
	case input.DonLeft:
		return t.DonLeft
	case input.KaLeft:
		return t.KaLeft
	case input.DonRight:
		return t.DonRight
	case input.KaRight:
		return t.KaRight
	}
	return 0
}

// DoubleTriggerMode governs when both pads of a twin pair may trigger together.
type DoubleTriggerMode uint8

const (
	// DoubleTriggerOff: the stronger twin wins, the weaker one follows only
	// if it reached at least half of the winner's value.
	DoubleTriggerOff DoubleTriggerMode = iota
	// DoubleTriggerThreshold: both twins trigger once either reaches its
	// double trigger threshold, otherwise as Off.
	DoubleTriggerThreshold
	// DoubleTriggerAlways: both twins trigger whenever either is over its
	// normal threshold.
	DoubleTriggerAlways
)

func (m DoubleTriggerMode) String() string {
	switch m {
	case DoubleTriggerOff:
		return "off"
	case DoubleTriggerThreshold:
		return "threshold"
	case DoubleTriggerAlways:
		return "always"
	default:
		return "unknown"
	}
}

// Valid reports whether m is a known mode.
func (m DoubleTriggerMode) Valid() bool {
	return m <= DoubleTriggerAlways
}

// ParseDoubleTriggerMode is the inverse of DoubleTriggerMode.String.
func ParseDoubleTriggerMode(s string) (DoubleTriggerMode, error) {
	switch s {
	case "off":
		return DoubleTriggerOff, nil
	case "threshold":
		return DoubleTriggerThreshold, nil
	case "always":
		return DoubleTriggerAlways, nil
	}
	return 0, ErrInvalidMode
}

// ChannelMap assigns an ADC channel to every pad, indexed by input.PadID.
type ChannelMap [input.PadCount]uint8

// Config is the full drum engine configuration.
type Config struct {
	TriggerThresholds       Thresholds
	DoubleTriggerMode       DoubleTriggerMode
	DoubleTriggerThresholds Thresholds
	DebounceDelayMs         uint16
	RollCounterTimeoutMs    uint32

	Channels ChannelMap
	Backend  adc.Backend
}

// Errors
var (
	ErrInvalidChannelMap = errors.New("drum: channel map references a channel outside the acquired range")
	ErrDuplicateChannel  = errors.New("drum: two pads share an ADC channel")
	ErrNoBackend         = errors.New("drum: no ADC backend configured")
	ErrInvalidMode       = errors.New("drum: invalid double trigger mode")
)

// Validate checks the parts of the configuration that cannot change at
// runtime.
func (c *Config) Validate() error {
	if c.Backend == nil {
		return ErrNoBackend
	}
	if !c.DoubleTriggerMode.Valid() {
		return ErrInvalidMode
	}

	var used [adc.ChannelCount]bool
	for _, ch := range c.Channels {
		if ch >= adc.ChannelCount {
			return ErrInvalidChannelMap
		}
		if used[ch] {
			return ErrDuplicateChannel
		}
		used[ch] = true
	}
	return nil
}
