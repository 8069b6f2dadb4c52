// Package debounce implements the time-guarded boolean used by drum pads and
// controller buttons.
//
// A Switch changes state immediately, but only once per debounce window. A flip
// requested while the window is still closed is dropped, not queued: the switch
// keeps its previous state until a later request arrives after the window has
// reopened. Timestamps are milliseconds since boot and may wrap.
package debounce

// Switch is a debounced boolean.
type Switch struct {
	active     bool
	changed    bool // false until the first committed flip
	lastChange uint32
}

// Active returns the current state.
func (s *Switch) Active() bool {
	return s.active
}

// LastChange returns the timestamp of the last committed flip.
func (s *Switch) LastChange() uint32 {
	return s.lastChange
}

// Set requests the state desired at time now (ms). The flip is committed only
// if at least delayMs milliseconds have passed since the previous flip.
// Returns true when the state actually changed.
func (s *Switch) Set(desired bool, delayMs uint32, now uint32) bool {
	if s.active == desired {
		return false
	}

	if s.changed && now-s.lastChange < delayMs {
		return false
	}

	s.active = desired
	s.changed = true
	s.lastChange = now
	return true
}

// Reset returns the switch to its power-on state.
func (s *Switch) Reset() {
	*s = Switch{}
}
