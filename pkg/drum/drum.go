// Package drum turns raw pad samples into the drum part of the input state:
// debounced triggers with twin-pad arbitration, a roll counter and a windowed
// analog peak per pad.
package drum

import (
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debounce"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
)

type pad struct {
	channel uint8
	state   debounce.Switch
	env     envelope
}

// Drum is the drum engine. It owns its sample source and all per-pad state.
// Methods must be called from a single goroutine (the acquisition loop).
type Drum struct {
	cfg     Config
	sampler adc.Sampler

	pads [input.PadCount]pad
	roll RollCounter

	raw       [adc.ChannelCount]uint16 // last good collect
	busFaults uint32
}

// New validates cfg and builds the sample source selected by cfg.Backend.
// A misconfigured engine is never returned.
func New(cfg Config) (*Drum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sampler, err := adc.New(cfg.Backend)
	if err != nil {
		return nil, err
	}

	d := &Drum{cfg: cfg, sampler: sampler}
	for _, id := range input.Pads {
		d.pads[id].channel = cfg.Channels[id]
	}
	return d, nil
}

// UpdateInputState advances the engine by one tick at time now (ms since
// boot) and writes the drum part of state.
//
// When the sample source fails, the previous raw samples are used again so a
// bus glitch never looks like released pads.
func (d *Drum) UpdateInputState(now uint32, state *input.State) {
	raw, err := d.sampler.Collect()
	if err != nil {
		d.busFaults++
		raw = d.raw
	} else {
		d.raw = raw
	}

	var samples [input.PadCount]uint16
	for id := range d.pads {
		samples[id] = raw[d.pads[id].channel]
	}

	triggers := resolveTriggers(samples, &d.cfg)

	delay := uint32(d.cfg.DebounceDelayMs)
	edges := 0
	for id := range d.pads {
		p := &d.pads[id]
		if p.state.Set(triggers[id], delay, now) && p.state.Active() {
			edges++
		}
	}

	d.roll.Update(now, edges, d.cfg.RollCounterTimeoutMs)

	for id := range d.pads {
		p := &d.pads[id]
		peak := p.env.push(now, samples[id], delay)
		state.Drum.Pads[id] = input.Pad{
			Triggered: p.state.Active(),
			Raw:       samples[id],
			Analog:    ScaleTo16(peak),
		}
	}
	state.Drum.CurrentRoll = d.roll.Current()
	state.Drum.PreviousRoll = d.roll.Previous()
}

// SetThresholds replaces the trigger thresholds from the next tick on.
func (d *Drum) SetThresholds(t Thresholds) {
	d.cfg.TriggerThresholds = t
}

// SetDoubleTriggerMode sets the twin arbitration mode. Unknown modes are
// ignored.
func (d *Drum) SetDoubleTriggerMode(m DoubleTriggerMode) {
	if m.Valid() {
		d.cfg.DoubleTriggerMode = m
	}
}

// SetDoubleTriggerThresholds replaces the thresholds used in
// DoubleTriggerThreshold mode.
func (d *Drum) SetDoubleTriggerThresholds(t Thresholds) {
	d.cfg.DoubleTriggerThresholds = t
}

// SetDebounceDelay sets the debounce and analog window in milliseconds.
func (d *Drum) SetDebounceDelay(ms uint16) {
	d.cfg.DebounceDelayMs = ms
}

// SetRollCounterTimeout sets the gap after which a roll is closed.
func (d *Drum) SetRollCounterTimeout(ms uint32) {
	d.cfg.RollCounterTimeoutMs = ms
}

// Config returns a copy of the current configuration.
func (d *Drum) Config() Config {
	return d.cfg
}

// BusFaults returns how many ticks reused stale samples.
func (d *Drum) BusFaults() uint32 {
	return d.busFaults
}

// Reset clears the debounce, envelope and roll state, keeping configuration.
func (d *Drum) Reset() {
	for id := range d.pads {
		d.pads[id].state.Reset()
		d.pads[id].env.reset()
	}
	d.roll.Reset()
}
