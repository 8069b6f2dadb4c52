package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/tuffrabit/tinygo-doncon-rp2040/host/client"
	"github.com/tuffrabit/tinygo-doncon-rp2040/host/serial"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	timeout = flag.Duration("timeout", client.DefaultTimeout, "Response timeout")
)

func main() {
	flag.Parse()

	fmt.Println("DonCon Host - controller configuration")
	fmt.Println("======================================")

	port, err := serial.Open(*device, *baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	c := client.New(port)
	c.SetTimeout(*timeout)

	if ok, err := c.Discover(); err != nil || !ok {
		fmt.Fprintf(os.Stderr, "Error: no DonCon controller on %s (%v)\n", *device, err)
		os.Exit(1)
	}
	fmt.Printf("Connected to %s\n", *device)

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		if args[0] == "quit" || args[0] == "exit" || args[0] == "q" {
			fmt.Println("Goodbye!")
			return
		}
		if err := run(c, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			port.Flush()
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func run(c *client.Client, args []string) error {
	switch args[0] {
	case "help", "?":
		printHelp()

	case "ping":
		start := time.Now()
		if err := c.Ping([]byte("doncon")); err != nil {
			return err
		}
		fmt.Printf("pong in %v\n", time.Since(start))

	case "get":
		s, err := c.Settings()
		if err != nil {
			return err
		}
		printSettings(s)

	case "thresholds":
		t, err := parseThresholds(args[1:])
		if err != nil {
			return err
		}
		return c.SetThresholds(t)

	case "double":
		if len(args) < 2 {
			return fmt.Errorf("usage: double off|threshold|always [dl kl dr kr]")
		}
		m, err := drum.ParseDoubleTriggerMode(args[1])
		if err != nil {
			return err
		}
		s, err := c.Settings()
		if err != nil {
			return err
		}
		t := s.DoubleTriggerThresholds
		if len(args) > 2 {
			if t, err = parseThresholds(args[2:]); err != nil {
				return err
			}
		}
		return c.SetDoubleTrigger(m, t)

	case "debounce":
		if len(args) != 2 {
			return fmt.Errorf("usage: debounce <ms>")
		}
		ms, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", args[1], err)
		}
		return c.SetDebounce(uint16(ms))

	case "brightness":
		if len(args) != 2 {
			return fmt.Errorf("usage: brightness <0-255>")
		}
		b, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return fmt.Errorf("invalid brightness %q: %w", args[1], err)
		}
		s, err := c.Settings()
		if err != nil {
			return err
		}
		s.LedBrightness = uint8(b)
		return c.SetSettings(s)

	case "mode":
		if len(args) != 2 {
			return fmt.Errorf("usage: mode <0-%d>", settings.UsbModeDebug)
		}
		n, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil || !settings.UsbMode(n).Valid() {
			return fmt.Errorf("invalid usb mode %q", args[1])
		}
		s, err := c.Settings()
		if err != nil {
			return err
		}
		s.UsbMode = settings.UsbMode(n)
		if err := c.SetSettings(s); err != nil {
			return err
		}
		fmt.Printf("usb mode set to %s, the controller reboots\n", s.UsbMode)

	case "watch":
		n := 50
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count %q: %w", args[1], err)
			}
			n = v
		}
		return watch(c, n)

	case "stats":
		s, err := c.StorageStats()
		if err != nil {
			return err
		}
		fmt.Printf("storage: %d used, %d free of %d, settings stored: %v, wiped at boot: %v\n",
			s.Used, s.Free, s.Total, s.HasSettings, s.Wiped)

	case "version":
		v, err := c.Version()
		if err != nil {
			return err
		}
		fmt.Printf("firmware %s\n", v)

	case "reset":
		return c.FactoryReset()

	case "reboot":
		return c.Reboot(len(args) > 1 && args[1] == "bootsel")

	default:
		fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", args[0])
	}
	return nil
}

func parseThresholds(args []string) (drum.Thresholds, error) {
	if len(args) != input.PadCount {
		return drum.Thresholds{}, fmt.Errorf("expected 4 values (don left, ka left, don right, ka right), got %d", len(args))
	}
	var v [input.PadCount]uint16
	for i, a := range args {
		n, err := strconv.ParseUint(a, 10, 16)
		if err != nil {
			return drum.Thresholds{}, fmt.Errorf("invalid threshold %q: %w", a, err)
		}
		v[i] = uint16(n)
	}
	return drum.Thresholds{DonLeft: v[0], KaLeft: v[1], DonRight: v[2], KaRight: v[3]}, nil
}

func printSettings(s *settings.Settings) {
	fmt.Printf("  usb mode        %s\n", s.UsbMode)
	fmt.Printf("  thresholds      %d %d %d %d\n",
		s.TriggerThresholds.DonLeft, s.TriggerThresholds.KaLeft, s.TriggerThresholds.DonRight, s.TriggerThresholds.KaRight)
	fmt.Printf("  double trigger  %s %d %d %d %d\n", s.DoubleTriggerMode,
		s.DoubleTriggerThresholds.DonLeft, s.DoubleTriggerThresholds.KaLeft,
		s.DoubleTriggerThresholds.DonRight, s.DoubleTriggerThresholds.KaRight)
	fmt.Printf("  debounce        %d ms\n", s.DebounceDelayMs)
	fmt.Printf("  roll timeout    %d ms\n", s.RollCounterTimeoutMs)
	fmt.Printf("  led             brightness %d, player color %v\n", s.LedBrightness, s.LedEnablePlayerColor())
}

func watch(c *client.Client, n int) error {
	var last input.DrumState
	for i := 0; i < n; i++ {
		d, err := c.InputState()
		if err != nil {
			return err
		}
		if i == 0 || d != last {
			var b strings.Builder
			for _, id := range input.Pads {
				p := d.Pads[id]
				mark := ' '
				if p.Triggered {
					mark = '*'
				}
				fmt.Fprintf(&b, "%-4s%c%4d  ", id, mark, p.Raw)
			}
			fmt.Fprintf(&b, "roll %d (%d)", d.CurrentRoll, d.PreviousRoll)
			fmt.Println(b.String())
			last = d
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help                              - Show this help message")
	fmt.Println("  ping                              - Check the connection")
	fmt.Println("  get                               - Print the settings")
	fmt.Println("  thresholds DL KL DR KR            - Set the trigger thresholds")
	fmt.Println("  double off|threshold|always [DL KL DR KR] - Set the double trigger mode")
	fmt.Println("  debounce MS                       - Set the debounce delay")
	fmt.Println("  brightness 0-255                  - Set the LED brightness")
	fmt.Println("  mode N                            - Set the USB mode (reboots)")
	fmt.Println("  watch [N]                         - Poll the drum state N times")
	fmt.Println("  stats                             - Show storage usage")
	fmt.Println("  version                           - Show the firmware version")
	fmt.Println("  reset                             - Factory reset (reboots)")
	fmt.Println("  reboot [bootsel]                  - Reboot, optionally into the bootloader")
	fmt.Println("  quit/exit/q                       - Exit the program")
	fmt.Println()
}
