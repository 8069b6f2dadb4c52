package cores

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debug"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/led"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
)

var ErrNoStore = errors.New("peripheral needs a settings store")

// ButtonScanner samples the button cluster. controller.Controller implements
// it.
type ButtonScanner interface {
	UpdateInputState(now uint32, state *input.State)
	SetDebounceDelay(ms uint16)
}

// Display shows a View. display.Manager implements it.
type Display interface {
	Update(v display.View) error
}

// DefaultDisplayIntervalMs limits the redraw rate of the display.
const DefaultDisplayIntervalMs = 20

// PeripheralConfig wires the peripheral loop. Buttons, Led and Display are
// optional.
type PeripheralConfig struct {
	Channels          *Channels
	Store             *settings.Store
	Buttons           ButtonScanner
	Led               *led.StatusLed
	Display           Display
	DisplayIntervalMs uint32
	Reboot            func(settings.Reboot)
	Clock             Clock
	Period            time.Duration
	Trace             Tracer
}

// Peripheral is the slow loop: buttons, LED, display and flash.
type Peripheral struct {
	cfg     PeripheralConfig
	applied uint32

	usbMode  settings.UsbMode
	player   uint8
	menu     bool
	settings settings.Settings

	view       display.View
	rendered   bool
	lastRender uint32

	mu     sync.Mutex
	drum   input.DrumState
	status string
}

func NewPeripheral(cfg PeripheralConfig) (*Peripheral, error) {
	if cfg.Channels == nil {
		return nil, ErrNoChannels
	}
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.DisplayIntervalMs == 0 {
		cfg.DisplayIntervalMs = DefaultDisplayIntervalMs
	}
	p := &Peripheral{
		cfg:     cfg,
		applied: cfg.Store.Revision(),
	}
	p.applyLocal(cfg.Store.Settings())
	return p, nil
}

func (p *Peripheral) trace(s Stage) {
	if p.cfg.Trace != nil {
		p.cfg.Trace(s)
	}
}

// DrumState returns the last drum state received from the acquisition loop.
// It is safe to call from any goroutine.
func (p *Peripheral) DrumState() input.DrumState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drum
}

// SetStatus sets the status row of the idle screen. It is safe to call from
// any goroutine.
func (p *Peripheral) SetStatus(s string) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// Menu reports whether the acquisition loop opened the menu.
func (p *Peripheral) Menu() bool {
	return p.menu
}

// UsbMode returns the mode announced by the acquisition loop.
func (p *Peripheral) UsbMode() settings.UsbMode {
	return p.usbMode
}

// Run ticks until ctx is done.
func (p *Peripheral) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Tick(ctx); err != nil {
			return err
		}
		if p.cfg.Period > 0 {
			time.Sleep(p.cfg.Period)
		}
	}
}

// Tick runs one pass. It never waits on the acquisition loop; ctx is
// accepted for symmetry with Acquisition.Tick.
func (p *Peripheral) Tick(_ context.Context) error {
	now := p.cfg.Clock()
	ch := p.cfg.Channels

	p.trace(StageScanButtons)
	if p.cfg.Buttons != nil {
		var s input.State
		p.cfg.Buttons.UpdateInputState(now, &s)
		ch.Buttons.TrySend(s.Controller)
	}

	p.trace(StageDrainState)
	if d, ok := ch.Drum.TryReceive(); ok {
		p.mu.Lock()
		p.drum = d
		p.mu.Unlock()
		if p.cfg.Led != nil {
			p.cfg.Led.SetDrumState(d)
		}
	}

	p.trace(StageDrainControl)
	for {
		c, ok := ch.ToPeripheral.TryReceive()
		if !ok {
			break
		}
		p.control(c)
	}

	p.trace(StagePersist)
	p.persist()

	p.trace(StageRender)
	p.render(now)
	return nil
}

func (p *Peripheral) control(c Control) {
	switch c.Kind {
	case EnterMenu:
		p.menu = true
	case ExitMenu:
		p.menu = false
	case SetPlayerColor:
		p.player = c.Player
		if p.cfg.Led != nil {
			p.cfg.Led.SetPlayerColor(c.Color)
		}
	case SetUsbMode:
		p.usbMode = c.UsbMode
	}
}

// applyLocal applies the settings owned by this loop.
func (p *Peripheral) applyLocal(s settings.Settings) {
	p.settings = s
	if p.cfg.Led != nil {
		p.cfg.Led.SetBrightness(s.LedBrightness)
		p.cfg.Led.SetEnablePlayerColor(s.LedEnablePlayerColor())
	}
	if p.cfg.Buttons != nil {
		p.cfg.Buttons.SetDebounceDelay(s.DebounceDelayMs)
	}
}

// persist forwards new settings to the acquisition loop, writes them to
// flash and carries out a scheduled reboot.
func (p *Peripheral) persist() {
	st := p.cfg.Store
	if rev := st.Revision(); rev != p.applied {
		s := st.Settings()
		p.applyLocal(s)
		p.cfg.Channels.Settings.TrySend(s)
		p.applied = rev
	}

	r, err := st.Save()
	if err != nil {
		// Still dirty, retried next tick.
		debug.Async("save: " + err.Error())
		return
	}
	if r != settings.RebootNone && p.cfg.Reboot != nil {
		p.cfg.Reboot(r)
	}
}

func (p *Peripheral) render(now uint32) {
	if p.cfg.Led != nil {
		if err := p.cfg.Led.Update(); err != nil {
			debug.Async("led: " + err.Error())
		}
	}
	if p.cfg.Display == nil {
		return
	}

	p.mu.Lock()
	v := display.View{
		UsbMode:  p.usbMode,
		Player:   p.player,
		Menu:     p.menu,
		Drum:     p.drum,
		Settings: p.settings,
		Status:   p.status,
	}
	p.mu.Unlock()

	if p.rendered && (v == p.view || now-p.lastRender < p.cfg.DisplayIntervalMs) {
		return
	}
	if err := p.cfg.Display.Update(v); err != nil {
		debug.Async("display: " + err.Error())
		return
	}
	p.view = v
	p.rendered = true
	p.lastRender = now
}
