package adc

import (
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"
)

// DeadTime is the chip-select high time between two conversions. The MCP3204
// needs at least 500ns; the rearm timer cannot resolve much less than a couple
// of microseconds anyway.
const DeadTime = 2 * time.Microsecond

// heldFresh marks a channel converted since the last collect.
const heldFresh = 1 << 16

// MaxHold continuously converts channel n mod 4 and keeps the running maximum
// per channel until Collect takes it.
//
// The conversion chain runs in timer callbacks and is the only writer of the
// maxima; Collect runs on the acquisition loop and is the only reader. Each
// channel keeps its maximum and its fresh mark in one atomic word, so a
// conversion is either fully taken by a collect or fully left for the next.
type MaxHold struct {
	bus    drivers.SPI
	cs     Pin
	enable Pin
	sched  Scheduler

	running atomic.Bool
	held    [ChannelCount]atomic.Uint32 // maximum | heldFresh
	faults  atomic.Uint32

	// owned by the conversion chain
	channel uint8
	rx      [mcp3204FrameBytes]byte

	// owned by the collector
	last       [ChannelCount]uint16
	lastFaults uint32
}

// NewMaxHold returns a stopped max-hold sampler. enable may be nil when the
// board has no level shifter.
func NewMaxHold(bus drivers.SPI, cs, enable Pin, sched Scheduler) *MaxHold {
	if sched == nil {
		sched = TimerScheduler{}
	}
	return &MaxHold{bus: bus, cs: cs, enable: enable, sched: sched}
}

// Start powers the level shifter and arms the first conversion.
func (m *MaxHold) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	if m.enable != nil {
		m.enable.Set(true)
	}
	m.cs.Set(true)
	m.channel = 0
	m.sched.AfterFunc(DeadTime, m.convert)
}

// Stop ends the conversion chain after the pending callback.
func (m *MaxHold) Stop() {
	m.running.Store(false)
}

// Running reports whether the conversion chain is armed.
func (m *MaxHold) Running() bool {
	return m.running.Load()
}

// Faults returns the number of failed transfers since Start.
func (m *MaxHold) Faults() uint32 {
	return m.faults.Load()
}

// convert runs one conversion and rearms itself.
func (m *MaxHold) convert() {
	if !m.running.Load() {
		return
	}

	ch := m.channel
	tx := mcp3204Command(ch)

	m.cs.Set(false)
	err := m.bus.Tx(tx[:], m.rx[:])
	m.cs.Set(true)

	if err != nil {
		m.faults.Add(1)
	} else {
		m.raise(ch, uint32(mcp3204Decode(m.rx[:])))
	}

	m.channel = (ch + 1) % ChannelCount
	m.sched.AfterFunc(DeadTime, m.convert)
}

func (m *MaxHold) raise(ch uint8, v uint32) {
	slot := &m.held[ch]
	for {
		old := slot.Load()
		next := old | heldFresh
		if v > old&MaxValue {
			next = v | heldFresh
		}
		if next == old || slot.CompareAndSwap(old, next) {
			return
		}
	}
}

// Collect implements Sampler. It takes the four running maxima and resets them
// to zero. A channel that saw no conversion since the previous collect repeats
// its previous value, unless transfers failed in the meantime, in which case
// ErrBusFault is returned.
func (m *MaxHold) Collect() ([ChannelCount]uint16, error) {
	if !m.running.Load() {
		return m.last, ErrNotRunning
	}

	var out [ChannelCount]uint16
	all := true
	for ch := range out {
		w := m.held[ch].Swap(0)
		if w&heldFresh != 0 {
			out[ch] = uint16(w & MaxValue)
		} else {
			out[ch] = m.last[ch]
			all = false
		}
	}

	faults := m.faults.Load()
	faulted := faults != m.lastFaults
	m.lastFaults = faults
	if faulted && !all {
		return m.last, ErrBusFault
	}

	m.last = out
	return out, nil
}
