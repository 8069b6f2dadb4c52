package drum

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/adc"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
)

// source is a ChannelReader returning fixed values per ADC channel.
type source struct {
	values [adc.ChannelCount]uint16
	err    error
}

func (s *source) ReadChannel(ch uint8) (uint16, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.values[ch], nil
}

// boardChannels mirrors the default wiring: pads are not on channels in
// PadID order.
var boardChannels = ChannelMap{
	input.DonLeft:  3,
	input.KaLeft:   2,
	input.DonRight: 0,
	input.KaRight:  1,
}

func testConfig(src *source) Config {
	return Config{
		TriggerThresholds:       Thresholds{DonLeft: 10, KaLeft: 5, DonRight: 10, KaRight: 5},
		DoubleTriggerMode:       DoubleTriggerOff,
		DoubleTriggerThresholds: Thresholds{DonLeft: 2000, KaLeft: 1500, DonRight: 2000, KaRight: 1500},
		DebounceDelayMs:         25,
		RollCounterTimeoutMs:    500,
		Channels:                boardChannels,
		Backend:                 adc.Oversampled{Reader: src, SampleCount: 1},
	}
}

func newTestDrum(t testing.TB, mutate func(*Config)) (*Drum, *source) {
	t.Helper()
	src := &source{}
	cfg := testConfig(src)
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, src
}

// feed sets the raw sample seen by each pad.
func (s *source) feed(donL, kaL, donR, kaR uint16) {
	s.values[boardChannels[input.DonLeft]] = donL
	s.values[boardChannels[input.KaLeft]] = kaL
	s.values[boardChannels[input.DonRight]] = donR
	s.values[boardChannels[input.KaRight]] = kaR
}

func triggered(st *input.State) [input.PadCount]bool {
	var out [input.PadCount]bool
	for id := range st.Drum.Pads {
		out[id] = st.Drum.Pads[id].Triggered
	}
	return out
}

func TestSingleDonHit(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	src.feed(20, 0, 0, 0)
	d.UpdateInputState(1, &st)

	want := [input.PadCount]bool{input.DonLeft: true}
	if got := triggered(&st); got != want {
		t.Errorf("triggers: expected %v, got %v", want, got)
	}
	if st.Drum.Pads[input.DonLeft].Raw != 20 {
		t.Errorf("DonLeft raw: expected 20, got %d", st.Drum.Pads[input.DonLeft].Raw)
	}
	if st.Drum.CurrentRoll != 1 {
		t.Errorf("CurrentRoll: expected 1, got %d", st.Drum.CurrentRoll)
	}
}

func TestAllBelowThreshold(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	src.feed(10, 5, 10, 5)
	d.UpdateInputState(1, &st)

	if st.Drum.AnyTriggered() {
		t.Errorf("no pad should trigger at exactly the threshold, got %v", triggered(&st))
	}
	if st.Drum.CurrentRoll != 0 {
		t.Errorf("CurrentRoll: expected 0, got %d", st.Drum.CurrentRoll)
	}
}

func TestResolveTriggers(t *testing.T) {
	base := testConfig(&source{})

	tests := []struct {
		name string
		mode DoubleTriggerMode
		raw  [input.PadCount]uint16 // DonL, KaL, DonR, KaR
		want [input.PadCount]bool
	}{
		{"off winner only", DoubleTriggerOff, [4]uint16{1000, 0, 499, 0}, [4]bool{true, false, false, false}},
		{"off sympathy band", DoubleTriggerOff, [4]uint16{1000, 0, 500, 0}, [4]bool{true, false, true, false}},
		{"off right wins", DoubleTriggerOff, [4]uint16{300, 0, 1000, 0}, [4]bool{false, false, true, false}},
		{"off ka pair", DoubleTriggerOff, [4]uint16{0, 600, 0, 1000}, [4]bool{false, true, false, true}},
		{"off twin below threshold but in band", DoubleTriggerOff, [4]uint16{12, 0, 8, 0}, [4]bool{true, false, true, false}},
		{"always both from one", DoubleTriggerAlways, [4]uint16{0, 0, 11, 0}, [4]bool{true, false, true, false}},
		{"always ka beats weaker don", DoubleTriggerAlways, [4]uint16{800, 900, 800, 900}, [4]bool{false, true, false, true}},
		{"always don beats weaker ka", DoubleTriggerAlways, [4]uint16{3000, 900, 2000, 900}, [4]bool{true, false, true, false}},
		{"always nothing over", DoubleTriggerAlways, [4]uint16{10, 5, 10, 5}, [4]bool{}},
		{"threshold forced double", DoubleTriggerThreshold, [4]uint16{2500, 0, 100, 0}, [4]bool{true, false, true, false}},
		{"threshold falls back to off", DoubleTriggerThreshold, [4]uint16{1900, 0, 100, 0}, [4]bool{true, false, false, false}},
		{"threshold exact is not over", DoubleTriggerThreshold, [4]uint16{2000, 0, 100, 0}, [4]bool{true, false, false, false}},
		{"don strictly stronger wins", DoubleTriggerOff, [4]uint16{400, 399, 0, 0}, [4]bool{true, false, false, false}},
		{"tie goes to ka", DoubleTriggerOff, [4]uint16{400, 400, 0, 0}, [4]bool{false, true, false, false}},
		{"below-threshold don does not block ka", DoubleTriggerOff, [4]uint16{9, 6, 0, 0}, [4]bool{false, true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.DoubleTriggerMode = tt.mode
			if got := resolveTriggers(tt.raw, &cfg); got != tt.want {
				t.Errorf("resolveTriggers(%v): expected %v, got %v", tt.raw, tt.want, got)
			}
		})
	}
}

func TestSympathyBandProperty(t *testing.T) {
	cfg := testConfig(&source{})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		winner := uint16(11 + rng.Intn(4085))
		loser := uint16(rng.Intn(int(winner)))
		got := resolveTriggers([4]uint16{winner, 0, loser, 0}, &cfg)
		if !got[input.DonLeft] {
			t.Fatalf("winner %d did not trigger", winner)
		}
		if want := uint32(loser)*2 >= uint32(winner); got[input.DonRight] != want {
			// winner>>1 floors, so odd winners admit loser == (winner-1)/2.
			if !(winner%2 == 1 && loser == winner>>1) {
				t.Fatalf("winner %d loser %d: expected loser %v, got %v", winner, loser, want, got[input.DonRight])
			}
		}
	}
}

func TestDebounceHoldsTrigger(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	src.feed(20, 0, 0, 0)
	d.UpdateInputState(100, &st)

	// Released 10ms later: still inside the window.
	src.feed(0, 0, 0, 0)
	d.UpdateInputState(110, &st)
	if !st.Drum.Pads[input.DonLeft].Triggered {
		t.Error("DonLeft should stay triggered inside the debounce window")
	}

	d.UpdateInputState(125, &st)
	if st.Drum.Pads[input.DonLeft].Triggered {
		t.Error("DonLeft should release once the window elapsed")
	}
}

func TestTriggerNeverFlipsWithinWindow(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State
	rng := rand.New(rand.NewSource(42))

	var last [input.PadCount]uint32
	var prev [input.PadCount]bool
	var flipped [input.PadCount]bool

	for now := uint32(1); now < 20000; now++ {
		src.feed(uint16(rng.Intn(64)), uint16(rng.Intn(64)), uint16(rng.Intn(64)), uint16(rng.Intn(64)))
		d.UpdateInputState(now, &st)

		for id := range st.Drum.Pads {
			cur := st.Drum.Pads[id].Triggered
			if cur == prev[id] {
				continue
			}
			if flipped[id] && now-last[id] < 25 {
				t.Fatalf("pad %v flipped at %d, %dms after previous flip", input.PadID(id), now, now-last[id])
			}
			flipped[id] = true
			last[id] = now
			prev[id] = cur
		}
	}
}

func TestRollCounter(t *testing.T) {
	var r RollCounter

	// Isolated hit never becomes a roll.
	r.Update(0, 1, 500)
	r.Update(600, 0, 500)
	if r.Previous() != 0 {
		t.Errorf("Previous after single hit: expected 0, got %d", r.Previous())
	}
	if r.Current() != 0 {
		t.Errorf("Current after timeout: expected 0, got %d", r.Current())
	}

	// Four hits, two of them in the same tick, then a gap.
	r.Update(1000, 1, 500)
	r.Update(1100, 1, 500)
	r.Update(1200, 2, 500)
	if r.Current() != 4 {
		t.Errorf("Current: expected 4, got %d", r.Current())
	}
	r.Update(1700, 0, 500)
	if r.Current() != 4 {
		t.Errorf("Current at exactly the timeout: expected 4, got %d", r.Current())
	}
	r.Update(1701, 0, 500)
	if r.Previous() != 4 || r.Current() != 0 {
		t.Errorf("after gap: expected previous 4 current 0, got %d %d", r.Previous(), r.Current())
	}

	// A later single hit keeps the previous roll.
	r.Update(3000, 1, 500)
	r.Update(4000, 0, 500)
	if r.Previous() != 4 {
		t.Errorf("Previous after later single hit: expected 4, got %d", r.Previous())
	}
}

func TestRollAcrossPads(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	hits := []struct {
		at  uint32
		raw [4]uint16
	}{
		{100, [4]uint16{20, 0, 0, 0}},
		{130, [4]uint16{}},
		{160, [4]uint16{0, 0, 0, 20}},
		{190, [4]uint16{}},
		{220, [4]uint16{0, 0, 20, 0}},
		{250, [4]uint16{}},
	}
	for _, h := range hits {
		src.feed(h.raw[0], h.raw[1], h.raw[2], h.raw[3])
		d.UpdateInputState(h.at, &st)
	}
	if st.Drum.CurrentRoll != 3 {
		t.Fatalf("CurrentRoll: expected 3, got %d", st.Drum.CurrentRoll)
	}

	d.UpdateInputState(800, &st)
	if st.Drum.CurrentRoll != 0 || st.Drum.PreviousRoll != 3 {
		t.Errorf("after timeout: expected 0/3, got %d/%d", st.Drum.CurrentRoll, st.Drum.PreviousRoll)
	}
}

func TestAnalogEnvelopeWindow(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	src.feed(4095, 0, 0, 0)
	d.UpdateInputState(0, &st)
	if got := st.Drum.Pads[input.DonLeft].Analog; got != 0xFFFF {
		t.Fatalf("Analog at peak: expected 0xFFFF, got %#x", got)
	}

	src.feed(0, 0, 0, 0)
	for now := uint32(1); now <= 25; now++ {
		d.UpdateInputState(now, &st)
		if got := st.Drum.Pads[input.DonLeft].Analog; got != 0xFFFF {
			t.Fatalf("Analog at %d: expected peak held, got %#x", now, got)
		}
	}

	d.UpdateInputState(26, &st)
	if got := st.Drum.Pads[input.DonLeft].Analog; got != 0 {
		t.Errorf("Analog after window: expected 0, got %#x", got)
	}
}

func TestEnvelopeNeverReportsExpired(t *testing.T) {
	var e envelope
	rng := rand.New(rand.NewSource(7))
	const window = 25

	type sample struct {
		ts uint32
		v  uint16
	}
	var history []sample

	now := uint32(0)
	for i := 0; i < 3000; i++ {
		now += uint32(rng.Intn(3))
		v := uint16(rng.Intn(4096))
		history = append(history, sample{now, v})
		got := e.push(now, v, window)

		var want uint16
		for _, s := range history {
			if now-s.ts <= window && s.v > want {
				want = s.v
			}
		}
		if got != want {
			t.Fatalf("push at %d: expected max %d, got %d", now, want, got)
		}
	}
}

func TestEnvelopeFullKeepsPeak(t *testing.T) {
	var e envelope
	const window = 100

	for now := uint32(0); now < 100; now++ {
		got := e.push(now, uint16(4000-10*now), window)
		if got != 4000 {
			t.Fatalf("push at %d: expected 4000, got %d", now, got)
		}
	}
	if e.count != envelopeDepth {
		t.Errorf("count: expected %d, got %d", envelopeDepth, e.count)
	}

	// The peak leaves the window; nothing older than the window is reported.
	if got := e.push(101, 0, window); got >= 4000 {
		t.Errorf("push at 101: expected the peak expired, got %d", got)
	}
}

func TestScaleTo16(t *testing.T) {
	tests := []struct{ in, want uint16 }{
		{0, 0},
		{4095, 0xFFFF},
		{2048, 0x8008},
		{5000, 0xFFFF},
	}
	for _, tt := range tests {
		if got := ScaleTo16(tt.in); got != tt.want {
			t.Errorf("ScaleTo16(%d): expected %#x, got %#x", tt.in, tt.want, got)
		}
	}
}

func TestSetThresholdsNextTick(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	src.feed(0, 0, 0, 0)
	d.UpdateInputState(1, &st)

	d.SetThresholds(Thresholds{DonLeft: 50, KaLeft: 50, DonRight: 50, KaRight: 50})
	src.feed(20, 0, 0, 0)
	d.UpdateInputState(2, &st)
	if st.Drum.AnyTriggered() {
		t.Error("raw 20 should not trigger with threshold 50")
	}

	d.SetThresholds(Thresholds{DonLeft: 10, KaLeft: 5, DonRight: 10, KaRight: 5})
	d.UpdateInputState(3, &st)
	if !st.Drum.Pads[input.DonLeft].Triggered {
		t.Error("raw 20 should trigger with threshold 10")
	}
}

func TestSetDoubleTriggerMode(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	d.SetDoubleTriggerMode(DoubleTriggerAlways)
	src.feed(20, 0, 0, 0)
	d.UpdateInputState(1, &st)
	if !st.Drum.Pads[input.DonRight].Triggered {
		t.Error("DonRight should follow DonLeft in always mode")
	}

	d.SetDoubleTriggerMode(DoubleTriggerMode(9))
	if d.Config().DoubleTriggerMode != DoubleTriggerAlways {
		t.Error("invalid mode should be ignored")
	}

	d.SetDebounceDelay(40)
	d.SetRollCounterTimeout(900)
	d.SetDoubleTriggerThresholds(Thresholds{1, 2, 3, 4})
	cfg := d.Config()
	if cfg.DebounceDelayMs != 40 || cfg.RollCounterTimeoutMs != 900 || cfg.DoubleTriggerThresholds.KaRight != 4 {
		t.Errorf("setters not applied: %+v", cfg)
	}
}

func TestBusFaultHoldsSamples(t *testing.T) {
	d, src := newTestDrum(t, nil)
	var st input.State

	src.feed(20, 0, 0, 0)
	d.UpdateInputState(1, &st)

	src.err = errors.New("spi timeout")
	d.UpdateInputState(50, &st)

	if !st.Drum.Pads[input.DonLeft].Triggered {
		t.Error("DonLeft should stay triggered on bus fault")
	}
	if st.Drum.Pads[input.DonLeft].Raw != 20 {
		t.Errorf("DonLeft raw: expected 20, got %d", st.Drum.Pads[input.DonLeft].Raw)
	}
	if d.BusFaults() != 1 {
		t.Errorf("BusFaults: expected 1, got %d", d.BusFaults())
	}
}

func TestNewRejectsMisconfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"channel out of range", func(c *Config) { c.Channels[input.KaRight] = 4 }, ErrInvalidChannelMap},
		{"duplicate channel", func(c *Config) { c.Channels[input.KaRight] = c.Channels[input.DonLeft] }, ErrDuplicateChannel},
		{"no backend", func(c *Config) { c.Backend = nil }, ErrNoBackend},
		{"bad mode", func(c *Config) { c.DoubleTriggerMode = 7 }, ErrInvalidMode},
		{"bad sample count", func(c *Config) { c.Backend = adc.Oversampled{Reader: &source{}} }, adc.ErrInvalidSampleCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(&source{})
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, tt.want) {
				t.Errorf("New: expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseDoubleTriggerMode(t *testing.T) {
	for _, m := range []DoubleTriggerMode{DoubleTriggerOff, DoubleTriggerThreshold, DoubleTriggerAlways} {
		got, err := ParseDoubleTriggerMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseDoubleTriggerMode(%q): expected %v, got %v (%v)", m.String(), m, got, err)
		}
	}
	if _, err := ParseDoubleTriggerMode("sometimes"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func BenchmarkResolveTriggers(b *testing.B) {
	cfg := testConfig(&source{})
	cfg.DoubleTriggerMode = DoubleTriggerThreshold
	raw := [input.PadCount]uint16{1800, 300, 900, 200}
	for i := 0; i < b.N; i++ {
		resolveTriggers(raw, &cfg)
	}
}

func BenchmarkUpdateInputState(b *testing.B) {
	d, src := newTestDrum(b, nil)
	var st input.State
	src.feed(900, 40, 700, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.UpdateInputState(uint32(i), &st)
	}
}
