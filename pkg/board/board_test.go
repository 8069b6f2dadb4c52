package board

import (
	"testing"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
)

type zeroReader struct{}

func (zeroReader) ReadChannel(uint8) (uint16, error) { return 0, nil }

func TestDrumConfigValid(t *testing.T) {
	cfg := DrumConfig()
	cfg.Backend = adc.Oversampled{Reader: zeroReader{}, SampleCount: InternalSampleCount}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("factory drum config invalid: %v", err)
	}
	if _, err := drum.New(cfg); err != nil {
		t.Fatalf("drum.New: %v", err)
	}
}

func TestControllerPinsUnique(t *testing.T) {
	var seen [16]bool
	for id, pin := range ControllerPins {
		if pin >= 16 {
			t.Fatalf("button %d on line %d, expander has 16", id, pin)
		}
		if seen[pin] {
			t.Fatalf("line %d used twice", pin)
		}
		seen[pin] = true
	}
}
