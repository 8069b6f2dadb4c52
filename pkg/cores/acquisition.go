package cores

import (
	"context"
	"errors"
	"image/color"
	"time"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debug"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/report"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
)

var (
	ErrNoDrum      = errors.New("acquisition needs a drum")
	ErrNoChannels  = errors.New("channels are required")
	ErrNoTransport = errors.New("acquisition needs a transport")
)

// Transport sends reports to the USB host.
type Transport interface {
	SendReport(report []byte) error
}

// PlayerSource is implemented by transports that learn the player number and
// color from the host.
type PlayerSource interface {
	Player() (id uint8, c color.RGBA, ok bool)
}

// AcquisitionConfig wires the acquisition loop.
type AcquisitionConfig struct {
	Drum      *drum.Drum
	Channels  *Channels
	UsbMode   settings.UsbMode
	Transport Transport
	Clock     Clock
	Period    time.Duration // pause between ticks, zero spins
	Trace     Tracer
}

// Acquisition is the real-time loop: drum, buttons, settings, report.
type Acquisition struct {
	cfg     AcquisitionConfig
	encoder report.Encoder

	state   input.State
	buttons input.ControllerState
	pending *settings.Settings

	menu     bool
	hotkey   bool
	started  bool
	player   uint8
	color    color.RGBA
	reported uint32
}

func NewAcquisition(cfg AcquisitionConfig) (*Acquisition, error) {
	if cfg.Drum == nil {
		return nil, ErrNoDrum
	}
	if cfg.Channels == nil {
		return nil, ErrNoChannels
	}
	if cfg.Transport == nil {
		return nil, ErrNoTransport
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	return &Acquisition{
		cfg:     cfg,
		encoder: report.ForMode(cfg.UsbMode),
	}, nil
}

// Menu reports whether the menu is open.
func (a *Acquisition) Menu() bool {
	return a.menu
}

// State returns the state built by the last tick.
func (a *Acquisition) State() input.State {
	return a.state
}

func (a *Acquisition) trace(s Stage) {
	if a.cfg.Trace != nil {
		a.cfg.Trace(s)
	}
}

// Start announces the USB mode to the peripheral loop. Run calls it.
func (a *Acquisition) Start(ctx context.Context) error {
	if a.started {
		return nil
	}
	a.started = true
	return a.cfg.Channels.ToPeripheral.Send(ctx, Control{Kind: SetUsbMode, UsbMode: a.cfg.UsbMode})
}

// Run ticks until ctx is done.
func (a *Acquisition) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.Tick(ctx); err != nil {
			return err
		}
		if a.cfg.Period > 0 {
			time.Sleep(a.cfg.Period)
		}
	}
}

// Tick runs one pass. It only blocks on control messages for the peripheral
// loop, and returns an error only when such a send is abandoned.
func (a *Acquisition) Tick(ctx context.Context) error {
	now := a.cfg.Clock()
	ch := a.cfg.Channels

	a.trace(StageAcquireDrum)
	a.state.ReleaseAll()
	a.cfg.Drum.UpdateInputState(now, &a.state)

	a.trace(StageAcquireButtons)
	if b, ok := ch.Buttons.TryReceive(); ok {
		a.buttons = b
	}
	a.state.Controller = a.buttons
	if held := a.buttons.MenuHotkey(); held != a.hotkey {
		a.hotkey = held
		if held {
			if err := a.toggleMenu(ctx); err != nil {
				return err
			}
		}
	}

	a.trace(StageDrainControlQueue)
	if s, ok := ch.Settings.TryReceive(); ok {
		a.pending = &s
	}

	a.trace(StageApplySettings)
	if a.pending != nil {
		a.apply(a.pending)
		a.pending = nil
	}

	a.trace(StagePublishReport)
	return a.publish(ctx)
}

func (a *Acquisition) toggleMenu(ctx context.Context) error {
	a.menu = !a.menu
	kind := ExitMenu
	if a.menu {
		kind = EnterMenu
	}
	debug.Async(kind.String())
	return a.cfg.Channels.ToPeripheral.Send(ctx, Control{Kind: kind})
}

func (a *Acquisition) apply(s *settings.Settings) {
	d := a.cfg.Drum
	d.SetThresholds(s.TriggerThresholds)
	d.SetDoubleTriggerMode(s.DoubleTriggerMode)
	d.SetDoubleTriggerThresholds(s.DoubleTriggerThresholds)
	d.SetDebounceDelay(s.DebounceDelayMs)
	d.SetRollCounterTimeout(s.RollCounterTimeoutMs)
}

func (a *Acquisition) publish(ctx context.Context) error {
	out := &a.state
	if a.menu {
		// Menu navigation must not reach the game.
		out = &input.State{}
	}
	if r := a.encoder.Encode(out); len(r) > 0 {
		if err := a.cfg.Transport.SendReport(r); err != nil {
			debug.Async("report: " + err.Error())
		} else {
			a.reported++
		}
	}

	a.cfg.Channels.Drum.TrySend(a.state.Drum)

	if ps, ok := a.cfg.Transport.(PlayerSource); ok {
		if id, c, known := ps.Player(); known && (id != a.player || c != a.color) {
			a.player, a.color = id, c
			return a.cfg.Channels.ToPeripheral.Send(ctx, Control{Kind: SetPlayerColor, Player: id, Color: c})
		}
	}
	return nil
}

// Reports returns the number of reports handed to the transport.
func (a *Acquisition) Reports() uint32 {
	return a.reported
}
