package drum

// RollCounter counts pad hits that follow each other within a timeout and
// remembers the length of the last completed roll.
type RollCounter struct {
	lastHit  uint32
	current  uint16
	previous uint16
}

// Update closes the running roll if it timed out, then counts edges new
// hits at time now.
func (r *RollCounter) Update(now uint32, edges int, timeoutMs uint32) {
	if now-r.lastHit > timeoutMs {
		if r.current > 1 {
			r.previous = r.current
		}
		r.current = 0
	}

	for i := 0; i < edges; i++ {
		if r.current < ^uint16(0) {
			r.current++
		}
		r.lastHit = now
	}
}

// Current returns the length of the running roll.
func (r *RollCounter) Current() uint16 { return r.current }

// Previous returns the length of the last completed roll of two or more hits.
func (r *RollCounter) Previous() uint16 { return r.previous }

// Reset clears both counters.
func (r *RollCounter) Reset() { *r = RollCounter{} }
