//go:build tinygo && trace

package main

import (
	"machine"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debug"
)

// With -tags=trace debug text goes to the UART console, leaving the CDC port
// to the configuration protocol.
func init() {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200})
	debug.SetWriter(func(s string) {
		uart.Write([]byte(s + "\r\n"))
	})
	debug.SetEnabled(true)
}
