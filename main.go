//go:build tinygo

// DonCon taiko drum controller firmware.
//
// Build with the multicore scheduler so the acquisition loop gets a core of
// its own:
//
//	tinygo flash -target=pico -scheduler=cores .
package main

import (
	"context"
	"machine"
	"time"

	"tinygo.org/x/drivers/ws2812"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/board"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/controller"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/cores"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debug"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/gamepad"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/led"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/storage"
	"github.com/tuffrabit/tinygo-doncon-rp2040/serial"
)

const (
	acquisitionPeriod = 100 * time.Microsecond
	peripheralPeriod  = time.Millisecond
	rebootDelay       = 100 * time.Millisecond
)

func main() {
	debug.StartAsync(32)

	// Shared by the expander and the display, peripheral core only.
	i2c := machine.I2C1
	if err := i2c.Configure(machine.I2CConfig{
		SDA:       board.I2CSDAPin,
		SCL:       board.I2CSCLPin,
		Frequency: board.I2CFrequency,
	}); err != nil {
		halt("i2c", err)
	}

	mgr, err := storage.New(machine.Flash, true)
	if err != nil {
		halt("storage", err)
	}
	store := settings.NewStore(mgr)
	current := store.Settings()

	d, err := newDrum(&current)
	if err != nil {
		halt("drum", err)
	}
	buttons, err := newController()
	if err != nil {
		halt("controller", err)
	}

	ch := cores.NewChannels()

	acq, err := cores.NewAcquisition(cores.AcquisitionConfig{
		Drum:      d,
		Channels:  ch,
		UsbMode:   current.UsbMode,
		Transport: gamepad.Port(),
		Period:    acquisitionPeriod,
	})
	if err != nil {
		halt("acquisition", err)
	}

	per, err := cores.NewPeripheral(cores.PeripheralConfig{
		Channels: ch,
		Store:    store,
		Buttons:  buttons,
		Led:      newStatusLed(),
		Display:  display.NewManager(i2c, board.DisplayAddr),
		Reboot:   reboot,
		Period:   peripheralPeriod,
	})
	if err != nil {
		halt("peripheral", err)
	}

	ctx := context.Background()

	go func() {
		if err := acq.Run(ctx); err != nil {
			halt("acquisition", err)
		}
	}()

	port := serial.NewSerial(cdcPort{machine.Serial}, protocol.NewHandler(store, mgr, per))
	f := display.NewFormatter()
	port.OnExchange(func(frame *protocol.Frame, resp *protocol.Response) {
		per.SetStatus(f.FormatExchange(frame, resp))
	})
	go func() {
		for {
			if err := port.Handle(ctx); err != nil {
				per.SetStatus(f.FormatError(err))
			}
		}
	}()

	if err := per.Run(ctx); err != nil {
		halt("peripheral", err)
	}
}

func newDrum(s *settings.Settings) (*drum.Drum, error) {
	cfg := board.DrumConfig()
	s.ApplyTo(&cfg)

	if board.HasExternalADC {
		err := machine.SPI1.Configure(machine.SPIConfig{
			Frequency: board.ADCFrequency,
			SCK:       board.ADCSCLKPin,
			SDO:       board.ADCMOSIPin,
			SDI:       board.ADCMISOPin,
			Mode:      0,
		})
		if err != nil {
			return nil, err
		}
		cs := machine.Pin(board.ADCChipSelectPin)
		cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
		cs.High()
		enable := machine.Pin(board.ADCLevelShifterEnablePin)
		enable.Configure(machine.PinConfig{Mode: machine.PinOutput})

		cfg.Backend = adc.Continuous{
			Bus:                machine.SPI1,
			ChipSelect:         cs,
			LevelShifterEnable: enable,
		}
	} else {
		cfg.Backend = adc.Oversampled{
			Reader:      adc.NewInternalADC(),
			SampleCount: board.InternalSampleCount,
		}
	}
	return drum.New(cfg)
}

func newController() (*controller.Controller, error) {
	cfg := board.ControllerConfig()
	if board.HasExternalGpio {
		cfg.Backend = controller.ExternalGpio{Bus: machine.I2C1, Address: board.ExpanderAddr}
	} else {
		cfg.Backend = controller.InternalGpio{}
	}
	return controller.New(cfg)
}

func newStatusLed() *led.StatusLed {
	enable := machine.Pin(board.LedEnablePin)
	enable.Configure(machine.PinConfig{Mode: machine.PinOutput})
	enable.High()

	data := machine.Pin(board.LedPin)
	data.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pixel := ws2812.New(data)
	return led.New(board.LedConfig(), &pixel)
}

// reboot runs on the peripheral core once the settings are on flash.
func reboot(r settings.Reboot) {
	debug.Println("reboot: " + r.String())
	// Let the pending protocol response go out first.
	time.Sleep(rebootDelay)
	if r == settings.RebootBootsel {
		machine.EnterBootloader()
	}
	machine.CPUReset()
}

// cdcPort adapts the USB CDC serial to io.ReadWriter, waiting for input.
type cdcPort struct {
	s machine.Serialer
}

func (p cdcPort) Read(b []byte) (int, error) {
	for p.s.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	n := 0
	for n < len(b) && p.s.Buffered() > 0 {
		c, err := p.s.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

func (p cdcPort) Write(b []byte) (int, error) {
	return p.s.Write(b)
}

// halt stops on a configuration error, blinking the on-board LED.
func halt(what string, err error) {
	debug.Println(what + ": " + err.Error())
	l := machine.LED
	l.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		l.Set(!l.Get())
		time.Sleep(250 * time.Millisecond)
	}
}
