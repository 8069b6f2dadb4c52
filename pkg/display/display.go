//go:build tinygo && !nodisplay

// Package display drives the SSD1306 OLED of the controller.
//
// The panel shares the I2C bus with the GPIO expander, so it must only be
// used from the peripheral core. To build without display support, use:
//
//	tinygo build -tags=nodisplay -target=pico -o firmware.uf2 .
package display

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	screenWidth  = 128
	screenHeight = 64
	rowHeight    = screenHeight / Rows
	baseline     = rowHeight - 1
)

// Colors for monochrome display
var (
	black = color.RGBA{0, 0, 0, 0}
	white = color.RGBA{255, 255, 255, 255}
)

// Manager renders Views on the panel, redrawing only the rows that changed.
type Manager struct {
	device *ssd1306.Device
	f      *Formatter
	shown  Lines
	drawn  bool
}

// NewManager configures the panel on an already configured bus.
func NewManager(bus drivers.I2C, address uint16) *Manager {
	dev := ssd1306.NewI2C(bus)
	dev.Configure(ssd1306.Config{
		Address: address,
		Width:   screenWidth,
		Height:  screenHeight,
	})
	dev.ClearDisplay()

	return &Manager{
		device: dev,
		f:      NewFormatter(),
	}
}

// Update draws v.
func (m *Manager) Update(v View) error {
	lines := m.f.Format(&v)
	if m.drawn && lines == m.shown {
		return nil
	}
	for row := range lines {
		if m.drawn && lines[row] == m.shown[row] {
			continue
		}
		m.clearRow(row)
		tinyfont.WriteLine(m.device, &proggy.TinySZ8pt7b, 0, int16(row*rowHeight+baseline), lines[row], white)
	}
	m.shown = lines
	m.drawn = true
	return m.device.Display()
}

// clearRow blanks the pixels of one text row.
func (m *Manager) clearRow(row int) {
	yStart := int16(row * rowHeight)
	for y := yStart; y < yStart+rowHeight; y++ {
		for x := int16(0); x < screenWidth; x++ {
			m.device.SetPixel(x, y, black)
		}
	}
}
