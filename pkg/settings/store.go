package settings

import (
	"sync"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
)

// Persister reads and writes the settings record. storage.Manager implements
// it on littlefs.
type Persister interface {
	LoadSettings() (*Settings, error)
	SaveSettings(s *Settings) error
	Wipe() error
}

// Reboot is the kind of reboot requested by a settings change.
type Reboot uint8

const (
	RebootNone Reboot = iota
	RebootNormal
	RebootBootsel
)

func (r Reboot) String() string {
	switch r {
	case RebootNormal:
		return "normal"
	case RebootBootsel:
		return "bootsel"
	default:
		return "none"
	}
}

// Store caches the settings in RAM and writes them back on Save when they
// changed.
type Store struct {
	mu     sync.Mutex
	p      Persister
	cache  Settings
	dirty  bool
	rev    uint32
	reboot Reboot
	loaded bool
}

// NewStore loads the stored settings, falling back to Default when nothing
// valid is stored.
func NewStore(p Persister) *Store {
	st := &Store{p: p, cache: Default()}
	if s, err := p.LoadSettings(); err == nil && s.Validate() == nil {
		st.cache = *s
		st.loaded = true
	}
	return st
}

// Loaded reports whether the settings came from storage.
func (st *Store) Loaded() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.loaded
}

// Settings returns a copy of the cached settings.
func (st *Store) Settings() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cache
}

// Revision is incremented on every change of the cached settings, including
// Reset. Consumers compare it to the revision they last applied.
func (st *Store) Revision() uint32 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.rev
}

// Dirty reports whether there are unsaved changes.
func (st *Store) Dirty() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.dirty
}

func (st *Store) update(f func(s *Settings)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	before := st.cache
	f(&st.cache)
	if st.cache != before {
		st.dirty = true
		st.rev++
	}
}

// SetUsbMode changes the USB mode. The new mode takes effect after a reboot,
// which is scheduled.
func (st *Store) SetUsbMode(m UsbMode) error {
	if !m.Valid() {
		return ErrInvalidUsbMode
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cache.UsbMode != m {
		st.cache.UsbMode = m
		st.dirty = true
		st.rev++
		st.scheduleRebootLocked(false)
	}
	return nil
}

// SetTriggerThresholds sets the pad thresholds.
func (st *Store) SetTriggerThresholds(t drum.Thresholds) {
	st.update(func(s *Settings) { s.TriggerThresholds = t })
}

// SetDoubleTriggerMode sets the twin arbitration mode.
func (st *Store) SetDoubleTriggerMode(m drum.DoubleTriggerMode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}
	st.update(func(s *Settings) { s.DoubleTriggerMode = m })
	return nil
}

// SetDoubleTriggerThresholds sets the thresholds of DoubleTriggerThreshold
// mode.
func (st *Store) SetDoubleTriggerThresholds(t drum.Thresholds) {
	st.update(func(s *Settings) { s.DoubleTriggerThresholds = t })
}

// SetDebounceDelay sets the debounce delay in ms.
func (st *Store) SetDebounceDelay(ms uint16) {
	st.update(func(s *Settings) { s.DebounceDelayMs = ms })
}

// SetRollCounterTimeout sets the roll timeout in ms.
func (st *Store) SetRollCounterTimeout(ms uint32) {
	st.update(func(s *Settings) { s.RollCounterTimeoutMs = ms })
}

// SetLedBrightness sets the status LED brightness.
func (st *Store) SetLedBrightness(b uint8) {
	st.update(func(s *Settings) { s.LedBrightness = b })
}

// SetLedEnablePlayerColor toggles the player color on the idle LED.
func (st *Store) SetLedEnablePlayerColor(enable bool) {
	st.update(func(s *Settings) { s.SetLedEnablePlayerColor(enable) })
}

// Replace swaps in a complete record. A different USB mode schedules a
// reboot like SetUsbMode.
func (st *Store) Replace(s Settings) error {
	s.Version = CurrentVersion
	if err := s.Validate(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s.UsbMode != st.cache.UsbMode {
		st.scheduleRebootLocked(false)
	}
	if s != st.cache {
		st.cache = s
		st.dirty = true
		st.rev++
	}
	return nil
}

// ScheduleReboot requests a reboot on the next Save. A bootsel request is never
// downgraded to a normal one.
func (st *Store) ScheduleReboot(bootsel bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.scheduleRebootLocked(bootsel)
}

func (st *Store) scheduleRebootLocked(bootsel bool) {
	if st.reboot == RebootBootsel {
		return
	}
	if bootsel {
		st.reboot = RebootBootsel
	} else {
		st.reboot = RebootNormal
	}
}

// Save writes the settings if they changed and returns the scheduled reboot,
// which the caller is expected to carry out.
func (st *Store) Save() (Reboot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.dirty {
		s := st.cache
		if err := st.p.SaveSettings(&s); err != nil {
			return RebootNone, err
		}
		st.dirty = false
	}

	r := st.reboot
	st.reboot = RebootNone
	return r, nil
}

// Reset wipes storage, restores the factory settings and schedules a reboot.
func (st *Store) Reset() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.p.Wipe(); err != nil {
		return err
	}
	st.cache = Default()
	st.dirty = false
	st.rev++
	st.loaded = false
	st.scheduleRebootLocked(false)
	return nil
}
