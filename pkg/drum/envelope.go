package drum

import "github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"

// envelopeDepth bounds the deque. Timestamps in the deque are strictly
// increasing, so it only fills up when the window is longer than envelopeDepth
// milliseconds and the signal decays for that long. The newest entry is then
// replaced, so the front keeps the true maximum until it expires.
const envelopeDepth = 64

type envelopeEntry struct {
	ts    uint32
	value uint16
}

// envelope tracks the maximum raw sample over a sliding time window.
// It is a monotonic deque: values strictly decrease from front to back, so the
// front is always the current maximum.
type envelope struct {
	buf   [envelopeDepth]envelopeEntry
	head  int
	count int
}

func (e *envelope) at(i int) *envelopeEntry {
	return &e.buf[(e.head+i)%envelopeDepth]
}

// push evicts entries older than window ms, appends v and returns the window
// maximum.
func (e *envelope) push(now uint32, v uint16, window uint32) uint16 {
	for e.count > 0 && now-e.at(0).ts > window {
		e.head = (e.head + 1) % envelopeDepth
		e.count--
	}

	for e.count > 0 && e.at(e.count-1).value <= v {
		e.count--
	}

	// A smaller sample in the same millisecond expires together with the
	// larger one in front of it and can never become the maximum.
	if e.count > 0 && e.at(e.count-1).ts == now {
		return e.at(0).value
	}

	if e.count == envelopeDepth {
		e.count--
	}
	*e.at(e.count) = envelopeEntry{ts: now, value: v}
	e.count++

	return e.at(0).value
}

func (e *envelope) reset() {
	e.head, e.count = 0, 0
}

// ScaleTo16 maps a 12-bit reading onto the full 16-bit range by splicing the
// top nibble into the low bits.
func ScaleTo16(raw uint16) uint16 {
	if raw > adc.MaxValue {
		raw = adc.MaxValue
	}
	return raw<<4 | raw>>8
}
