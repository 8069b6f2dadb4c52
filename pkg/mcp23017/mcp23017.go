// Package mcp23017 is a driver for the Microchip MCP23017 16-bit I2C GPIO
// expander.
//
// Registers are addressed in IOCON.BANK=0 mode, so the A and B registers of a
// pair are adjacent and 16-bit accesses auto-increment from A to B. Pins 0-7
// are port A, 8-15 port B.
package mcp23017

import (
	"errors"

	"tinygo.org/x/drivers"
)

// DefaultAddress is the bus address with A0-A2 tied low.
const DefaultAddress = 0x20

// PinCount is the number of GPIO lines.
const PinCount = 16

// Register addresses (IOCON.BANK = 0).
const (
	IODIRA   = 0x00
	IODIRB   = 0x01
	IPOLA    = 0x02
	IPOLB    = 0x03
	GPINTENA = 0x04
	GPINTENB = 0x05
	DEFVALA  = 0x06
	DEFVALB  = 0x07
	INTCONA  = 0x08
	INTCONB  = 0x09
	IOCON    = 0x0A
	GPPUA    = 0x0C
	GPPUB    = 0x0D
	INTFA    = 0x0E
	INTFB    = 0x0F
	INTCAPA  = 0x10
	INTCAPB  = 0x11
	GPIOA    = 0x12
	GPIOB    = 0x13
	OLATA    = 0x14
	OLATB    = 0x15
)

// Direction of a pin.
type Direction uint8

const (
	Input Direction = iota
	Output
)

var (
	ErrInvalidPin = errors.New("mcp23017: pin out of range")
)

// Device is an MCP23017 on an I2C bus.
type Device struct {
	bus     drivers.I2C
	address uint16
	buf     [3]byte
}

// New returns a device at address and resets IOCON so that registers are
// sequential with address auto-increment.
func New(bus drivers.I2C, address uint16) (*Device, error) {
	d := &Device{bus: bus, address: address}
	if err := d.writeRegister8(IOCON, 0x00); err != nil {
		return nil, err
	}
	return d, nil
}

// SetDirection sets all pin directions; a set bit makes the pin an input.
func (d *Device) SetDirection(inputMask uint16) error {
	return d.writeRegister16(IODIRA, inputMask)
}

// SetPinDirection sets the direction of one pin.
func (d *Device) SetPinDirection(pin uint8, dir Direction) error {
	return d.updateBit(IODIRA, pin, dir == Input)
}

// SetPullup enables the 100k pull-ups for every set bit.
func (d *Device) SetPullup(enableMask uint16) error {
	return d.writeRegister16(GPPUA, enableMask)
}

// SetPinPullup enables or disables the pull-up of one pin.
func (d *Device) SetPinPullup(pin uint8, enable bool) error {
	return d.updateBit(GPPUA, pin, enable)
}

// SetReversePolarity inverts the GPIO reading of every set bit.
func (d *Device) SetReversePolarity(reverseMask uint16) error {
	return d.writeRegister16(IPOLA, reverseMask)
}

// SetPinReversePolarity inverts the reading of one pin.
func (d *Device) SetPinReversePolarity(pin uint8, reverse bool) error {
	return d.updateBit(IPOLA, pin, reverse)
}

// Read returns the state of all 16 pins, port A in the low byte.
func (d *Device) Read() (uint16, error) {
	return d.readRegister16(GPIOA)
}

// ReadPin returns the state of one pin.
func (d *Device) ReadPin(pin uint8) (bool, error) {
	if pin >= PinCount {
		return false, ErrInvalidPin
	}
	reg, bit := split(GPIOA, pin)
	v, err := d.readRegister8(reg)
	if err != nil {
		return false, err
	}
	return v&bit != 0, nil
}

// Write sets the output latch of all pins.
func (d *Device) Write(value uint16) error {
	return d.writeRegister16(GPIOA, value)
}

// WritePin sets the output latch of one pin.
func (d *Device) WritePin(pin uint8, value bool) error {
	return d.updateBit(GPIOA, pin, value)
}

// split maps a pin to the A or B register of the pair starting at regA.
func split(regA uint8, pin uint8) (uint8, uint8) {
	if pin > 7 {
		return regA + 1, 1 << (pin - 8)
	}
	return regA, 1 << pin
}

func (d *Device) updateBit(regA uint8, pin uint8, set bool) error {
	if pin >= PinCount {
		return ErrInvalidPin
	}
	reg, bit := split(regA, pin)
	v, err := d.readRegister8(reg)
	if err != nil {
		return err
	}
	if set {
		v |= bit
	} else {
		v &^= bit
	}
	return d.writeRegister8(reg, v)
}

func (d *Device) readRegister8(reg uint8) (uint8, error) {
	d.buf[0] = reg
	if err := d.bus.Tx(d.address, d.buf[:1], d.buf[1:2]); err != nil {
		return 0, err
	}
	return d.buf[1], nil
}

func (d *Device) readRegister16(reg uint8) (uint16, error) {
	d.buf[0] = reg
	if err := d.bus.Tx(d.address, d.buf[:1], d.buf[1:3]); err != nil {
		return 0, err
	}
	return uint16(d.buf[2])<<8 | uint16(d.buf[1]), nil
}

func (d *Device) writeRegister8(reg, value uint8) error {
	d.buf[0] = reg
	d.buf[1] = value
	return d.bus.Tx(d.address, d.buf[:2], nil)
}

func (d *Device) writeRegister16(reg uint8, value uint16) error {
	d.buf[0] = reg
	d.buf[1] = uint8(value)
	d.buf[2] = uint8(value >> 8)
	return d.bus.Tx(d.address, d.buf[:3], nil)
}
