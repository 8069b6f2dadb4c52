package drum

import "github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"

// resolvePair decides a twin pair (left and right pad of the same strike
// type). left/right are raw samples, t* the normal and dt* the double trigger
// thresholds.
func resolvePair(mode DoubleTriggerMode, left, right, tLeft, tRight, dtLeft, dtRight uint16) (bool, bool) {
	overLeft := left > tLeft
	overRight := right > tRight

	switch mode {
	case DoubleTriggerAlways:
		both := overLeft || overRight
		return both, both
	case DoubleTriggerThreshold:
		if left > dtLeft || right > dtRight {
			return true, true
		}
	}

	if !overLeft && !overRight {
		return false, false
	}

	// The stronger pad wins; the twin follows only within the sympathy band.
	if left >= right {
		return true, right >= left>>1
	}
	return left >= right>>1, true
}

// resolveTriggers turns four raw samples (indexed by input.PadID) into four
// trigger decisions.
//
// Twins are paired by row: DonLeft/DonRight and KaLeft/KaRight. When both
// strike types end up triggered, the type with the larger peak wins outright
// and the other type is forced off, so vibration from a single hit cannot
// register as both don and ka. Don has to be strictly stronger to win.
func resolveTriggers(raw [input.PadCount]uint16, cfg *Config) [input.PadCount]bool {
	var out [input.PadCount]bool
	t := &cfg.TriggerThresholds
	dt := &cfg.DoubleTriggerThresholds

	donL, donR := raw[input.DonLeft], raw[input.DonRight]
	kaL, kaR := raw[input.KaLeft], raw[input.KaRight]

	out[input.DonLeft], out[input.DonRight] = resolvePair(cfg.DoubleTriggerMode,
		donL, donR, t.DonLeft, t.DonRight, dt.DonLeft, dt.DonRight)
	out[input.KaLeft], out[input.KaRight] = resolvePair(cfg.DoubleTriggerMode,
		kaL, kaR, t.KaLeft, t.KaRight, dt.KaLeft, dt.KaRight)

	donHit := out[input.DonLeft] || out[input.DonRight]
	kaHit := out[input.KaLeft] || out[input.KaRight]
	if !donHit || !kaHit {
		return out
	}

	if max(donL, donR) > max(kaL, kaR) {
		out[input.KaLeft], out[input.KaRight] = false, false
	} else {
		out[input.DonLeft], out[input.DonRight] = false, false
	}
	return out
}
