//go:build tinygo

package adc

import "machine"

// InternalADC reads the RP2040's on-die SAR ADC inputs ADC0..ADC3 (GP26..GP29).
type InternalADC struct {
	inputs [ChannelCount]machine.ADC
}

// NewInternalADC configures the four ADC pins.
func NewInternalADC() *InternalADC {
	machine.InitADC()

	a := &InternalADC{}
	pins := [ChannelCount]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}
	for i, p := range pins {
		a.inputs[i] = machine.ADC{Pin: p}
		a.inputs[i].Configure(machine.ADCConfig{})
	}
	return a
}

// ReadChannel implements ChannelReader. TinyGo scales readings to 16 bits;
// they are shifted back to the converter's native 12.
func (a *InternalADC) ReadChannel(ch uint8) (uint16, error) {
	if ch >= ChannelCount {
		return 0, ErrInvalidChannel
	}
	return a.inputs[ch].Get() >> 4, nil
}
