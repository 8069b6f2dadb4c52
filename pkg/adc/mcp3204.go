package adc

import "tinygo.org/x/drivers"

// MCP3204 command framing: start bit + single-ended mode in the first byte,
// channel select in the top two bits of the second.
const (
	mcp3204Start      = 0x06
	mcp3204FrameBytes = 3
)

func mcp3204Command(ch uint8) [mcp3204FrameBytes]byte {
	return [mcp3204FrameBytes]byte{mcp3204Start, ch << 6, 0x00}
}

func mcp3204Decode(rx []byte) uint16 {
	return uint16(rx[1]&0x0F)<<8 | uint16(rx[2])
}

// Mcp3204 is a blocking driver for the Microchip MCP3204 4-channel 12-bit ADC.
type Mcp3204 struct {
	bus drivers.SPI
	cs  Pin
	rx  [mcp3204FrameBytes]byte
}

// NewMcp3204 returns a driver on bus using cs as chip select. The chip select
// is driven high (idle).
func NewMcp3204(bus drivers.SPI, cs Pin) *Mcp3204 {
	cs.Set(true)
	return &Mcp3204{bus: bus, cs: cs}
}

// ReadChannel performs one conversion on ch.
func (m *Mcp3204) ReadChannel(ch uint8) (uint16, error) {
	if ch >= ChannelCount {
		return 0, ErrInvalidChannel
	}

	tx := mcp3204Command(ch)
	m.cs.Set(false)
	err := m.bus.Tx(tx[:], m.rx[:])
	m.cs.Set(true)
	if err != nil {
		return 0, err
	}
	return mcp3204Decode(m.rx[:]), nil
}
