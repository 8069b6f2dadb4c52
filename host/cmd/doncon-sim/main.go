// doncon-sim runs the firmware loops on the host, with the keyboard as drum.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"tinygo.org/x/tinyfs"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/board"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/controller"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/cores"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debug"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/storage"
)

var (
	mode    = flag.Uint("mode", uint(settings.UsbModeDebug), "USB mode to simulate")
	peak    = flag.Uint("peak", 2000, "Raw value of a simulated hit (0-4095)")
	decay   = flag.Duration("decay", 40*time.Millisecond, "Time for a hit to fade out")
	hold    = flag.Duration("hold", 150*time.Millisecond, "Time a typed button counts as held")
	verbose = flag.Bool("verbose", false, "Print debug messages")
)

var errQuit = errors.New("quit")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	m := settings.UsbMode(*mode)
	if !m.Valid() {
		return fmt.Errorf("invalid usb mode %d", *mode)
	}
	if *peak > adc.MaxValue {
		return fmt.Errorf("peak %d above %d", *peak, adc.MaxValue)
	}

	if *verbose {
		debug.SetWriter(func(s string) { fmt.Fprintf(os.Stderr, "%s\r\n", s) })
		debug.SetEnabled(true)
		debug.StartAsync(64)
	}

	mgr, err := storage.New(tinyfs.NewMemoryDevice(256, 4096, 64), true)
	if err != nil {
		return err
	}
	store := settings.NewStore(mgr)
	s := store.Settings()

	src := newSensors(uint16(*peak), *decay)
	cfg := board.DrumConfig()
	s.ApplyTo(&cfg)
	cfg.Backend = adc.Oversampled{Reader: src, SampleCount: 1}
	d, err := drum.New(cfg)
	if err != nil {
		return err
	}

	keys := newKeypad(*hold)
	ch := cores.NewChannels()
	out := &console{out: os.Stdout, text: m == settings.UsbModeDebug}

	acq, err := cores.NewAcquisition(cores.AcquisitionConfig{
		Drum:      d,
		Channels:  ch,
		UsbMode:   m,
		Transport: out,
		Period:    time.Millisecond,
	})
	if err != nil {
		return err
	}
	per, err := cores.NewPeripheral(cores.PeripheralConfig{
		Channels: ch,
		Store:    store,
		Buttons:  controller.NewWithGPIO(board.ControllerPins, s.DebounceDelayMs, keys),
		Period:   5 * time.Millisecond,
	})
	if err != nil {
		return err
	}

	fmt.Println("DonCon Simulator - " + m.String())
	fmt.Println("d f j k: drum, arrows: d-pad, enter/tab: start/select, x: quit")

	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return acq.Run(ctx) })
	g.Go(func() error { return per.Run(ctx) })
	g.Go(func() error {
		return readKeys(&decoder{sensors: src, keypad: keys})
	})

	err = g.Wait()
	ch.Close()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// readKeys feeds stdin to dec until the quit key.
func readKeys(dec *decoder) error {
	buf := make([]byte, 16)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return err
		}
		for _, b := range buf[:n] {
			if dec.feed(b) {
				return errQuit
			}
		}
	}
}
