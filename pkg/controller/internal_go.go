//go:build !tinygo

package controller

import "errors"

const internalPinCount = 30

var errNoInternalGpio = errors.New("controller: internal gpio needs the tinygo target")

func newInternal(Pins) (GPIO, error) {
	return nil, errNoInternalGpio
}
