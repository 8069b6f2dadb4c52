package controller

import "github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"

// socd resolves simultaneous opposite cardinal directions with last-input
// priority: while both are held, the direction that was held alone before is
// dropped in favour of the newer one.
type socd struct {
	lastVertical   ButtonID
	lastHorizontal ButtonID
}

func (s *socd) clean(d *input.DPad) {
	switch {
	case d.Up && d.Down:
		if s.lastVertical == Down {
			d.Down = false
		} else {
			d.Up = false
		}
	case d.Up:
		s.lastVertical = Up
	default:
		s.lastVertical = Down
	}

	switch {
	case d.Left && d.Right:
		if s.lastHorizontal == Right {
			d.Right = false
		} else {
			d.Left = false
		}
	case d.Left:
		s.lastHorizontal = Left
	default:
		s.lastHorizontal = Right
	}
}
