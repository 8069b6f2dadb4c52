// Package serial opens the controller's CDC configuration port on the host.
package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// ReadTimeout bounds a single read, so a silent device returns 0 bytes and
// the client can apply its own response timeout.
const ReadTimeout = 100 * time.Millisecond

// Open opens device. USB CDC ignores baud but the driver needs one.
func Open(device string, baud int) (*serial.Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	return port, nil
}
