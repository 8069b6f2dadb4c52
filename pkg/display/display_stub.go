//go:build tinygo && nodisplay

package display

import "tinygo.org/x/drivers"

// Manager is a no-op stub when the nodisplay build tag is used.
type Manager struct{}

// NewManager returns a Manager that draws nothing.
func NewManager(drivers.I2C, uint16) *Manager {
	return &Manager{}
}

// Update is a no-op in nodisplay mode.
func (m *Manager) Update(View) error { return nil }
