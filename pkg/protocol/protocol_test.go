package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/storage"

	"tinygo.org/x/tinyfs"
)

type fixedState struct {
	d input.DrumState
}

func (f *fixedState) DrumState() input.DrumState { return f.d }

func newTestHandler(t *testing.T) (*Handler, *settings.Store, *storage.Manager) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)
	mgr, err := storage.New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	st := settings.NewStore(mgr)
	return NewHandler(st, mgr, &fixedState{}), st, mgr
}

func TestFrameEncodingDecoding(t *testing.T) {
	original := &Frame{
		Cmd:     CmdSetThresholds,
		Payload: []byte{1, 2, 3, 4},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, original); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if buf.Len() != 1+1+2+4+2 {
		t.Errorf("frame length: expected 10, got %d", buf.Len())
	}

	decoded, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if decoded.Cmd != original.Cmd {
		t.Errorf("Cmd: expected 0x%x, got 0x%x", original.Cmd, decoded.Cmd)
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("Payload: expected %v, got %v", original.Payload, decoded.Payload)
	}
}

func TestResponseEncodingDecoding(t *testing.T) {
	var buf bytes.Buffer
	WriteResponse(&buf, &Response{Status: StatusNoSpace, Payload: []byte("full")})

	resp, err := ReadResponse(&buf)
	if err != nil {
		t.Fatalf("ReadResponse failed: %v", err)
	}
	if resp.Status != StatusNoSpace || string(resp.Payload) != "full" {
		t.Errorf("Response: got %+v", resp)
	}
}

func TestCRCKnownValue(t *testing.T) {
	// CRC-16/CCITT-FALSE check value.
	if got := calcCRC([]byte("123456789")); got != 0x29B1 {
		t.Errorf("CRC: expected 0x29B1, got 0x%04X", got)
	}
}

func TestPingCommand(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	frame := &Frame{
		Cmd:     CmdPing,
		Payload: []byte{0xAA, 0xBB, 0xCC},
	}

	resp := handler.Handle(frame)
	if resp.Status != StatusOK {
		t.Errorf("Expected status OK, got 0x%x", resp.Status)
	}
	if !bytes.Equal(resp.Payload, frame.Payload) {
		t.Errorf("Expected echo payload, got %v", resp.Payload)
	}
}

func TestGetSetSettings(t *testing.T) {
	handler, st, mgr := newTestHandler(t)
	defer mgr.Close()

	s := settings.Default()
	s.DoubleTriggerMode = drum.DoubleTriggerAlways
	s.LedBrightness = 17
	data, _ := s.MarshalBinary()

	setResp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data})
	if setResp.Status != StatusOK {
		t.Fatalf("SetSettings failed: status 0x%x", setResp.Status)
	}
	if st.Settings() != s {
		t.Errorf("store: expected %+v, got %+v", s, st.Settings())
	}

	getResp := handler.Handle(&Frame{Cmd: CmdGetSettings})
	if getResp.Status != StatusOK {
		t.Fatalf("GetSettings failed: status 0x%x", getResp.Status)
	}
	var loaded settings.Settings
	if err := loaded.UnmarshalBinary(getResp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if loaded.LedBrightness != 17 {
		t.Errorf("LedBrightness: expected 17, got %d", loaded.LedBrightness)
	}
}

func TestSetSettingsRejected(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	s := settings.Default()
	s.Version = settings.CurrentVersion + 1
	data, _ := s.MarshalBinary()
	if resp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data}); resp.Status != StatusVersionMismatch {
		t.Errorf("Expected StatusVersionMismatch, got 0x%x", resp.Status)
	}

	s = settings.Default()
	s.UsbMode = 200
	data, _ = s.MarshalBinary()
	if resp := handler.Handle(&Frame{Cmd: CmdSetSettings, Payload: data}); resp.Status != StatusInvalidData {
		t.Errorf("Expected StatusInvalidData, got 0x%x", resp.Status)
	}
}

func TestSetThresholds(t *testing.T) {
	handler, st, mgr := newTestHandler(t)
	defer mgr.Close()

	payload := make([]byte, ThresholdsSize)
	settings.PutThresholds(payload, drum.Thresholds{DonLeft: 100, KaLeft: 50, DonRight: 110, KaRight: 60})

	rev := st.Revision()
	if resp := handler.Handle(&Frame{Cmd: CmdSetThresholds, Payload: payload}); resp.Status != StatusOK {
		t.Fatalf("SetThresholds failed: status 0x%x", resp.Status)
	}
	got := st.Settings().TriggerThresholds
	if got.DonRight != 110 || got.KaRight != 60 {
		t.Errorf("TriggerThresholds: got %+v", got)
	}
	if st.Revision() == rev {
		t.Error("Revision should change")
	}
}

func TestSetDoubleTrigger(t *testing.T) {
	handler, st, mgr := newTestHandler(t)
	defer mgr.Close()

	payload := make([]byte, 1+ThresholdsSize)
	payload[0] = uint8(drum.DoubleTriggerThreshold)
	settings.PutThresholds(payload[1:], drum.Thresholds{DonLeft: 3000, KaLeft: 2500, DonRight: 3000, KaRight: 2500})

	if resp := handler.Handle(&Frame{Cmd: CmdSetDoubleTrigger, Payload: payload}); resp.Status != StatusOK {
		t.Fatalf("SetDoubleTrigger failed: status 0x%x", resp.Status)
	}
	s := st.Settings()
	if s.DoubleTriggerMode != drum.DoubleTriggerThreshold || s.DoubleTriggerThresholds.KaLeft != 2500 {
		t.Errorf("double trigger: got %v %+v", s.DoubleTriggerMode, s.DoubleTriggerThresholds)
	}

	payload[0] = 7
	if resp := handler.Handle(&Frame{Cmd: CmdSetDoubleTrigger, Payload: payload}); resp.Status != StatusInvalidData {
		t.Errorf("Expected StatusInvalidData, got 0x%x", resp.Status)
	}
}

func TestSetDebounce(t *testing.T) {
	handler, st, mgr := newTestHandler(t)
	defer mgr.Close()

	if resp := handler.Handle(&Frame{Cmd: CmdSetDebounce, Payload: []byte{40, 0}}); resp.Status != StatusOK {
		t.Fatalf("SetDebounce failed: status 0x%x", resp.Status)
	}
	if st.Settings().DebounceDelayMs != 40 {
		t.Errorf("DebounceDelayMs: expected 40, got %d", st.Settings().DebounceDelayMs)
	}
}

func TestGetInputState(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	var d input.DrumState
	d.Pads[input.DonRight] = input.Pad{Triggered: true, Raw: 1234, Analog: 0x4D2F}
	d.CurrentRoll = 7
	d.PreviousRoll = 12
	handler.state = &fixedState{d: d}

	resp := handler.Handle(&Frame{Cmd: CmdGetInputState})
	if resp.Status != StatusOK {
		t.Fatalf("GetInputState failed: status 0x%x", resp.Status)
	}
	if len(resp.Payload) != DrumStateSize {
		t.Fatalf("Expected %d bytes, got %d", DrumStateSize, len(resp.Payload))
	}
	got, ok := DrumStateFrom(resp.Payload)
	if !ok || got != d {
		t.Errorf("DrumState: expected %+v, got %+v", d, got)
	}
}

func TestStorageStats(t *testing.T) {
	handler, st, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetStorageStats})
	if resp.Status != StatusOK {
		t.Fatalf("GetStorageStats failed: status 0x%x", resp.Status)
	}

	// Verify response format: [Total:4][Used:4][Free:4][Flags:1]
	if len(resp.Payload) != 13 {
		t.Fatalf("Expected 13 bytes, got %d", len(resp.Payload))
	}

	total := binary.LittleEndian.Uint32(resp.Payload[0:4])
	used := binary.LittleEndian.Uint32(resp.Payload[4:8])
	free := binary.LittleEndian.Uint32(resp.Payload[8:12])

	if total == 0 {
		t.Error("Total space should not be zero")
	}
	if used > total {
		t.Errorf("Used space (%d) should not exceed total (%d)", used, total)
	}
	if free > total {
		t.Errorf("Free space (%d) should not exceed total (%d)", free, total)
	}
	if resp.Payload[12]&StatsHasSettings != 0 {
		t.Error("no settings should be stored initially")
	}

	st.SetDebounceDelay(30)
	st.Save()
	resp = handler.Handle(&Frame{Cmd: CmdGetStorageStats})
	if resp.Payload[12]&StatsHasSettings == 0 {
		t.Error("settings should be reported after save")
	}
}

func TestFactoryReset(t *testing.T) {
	handler, st, mgr := newTestHandler(t)
	defer mgr.Close()

	handler.Handle(&Frame{Cmd: CmdSetDebounce, Payload: []byte{99, 0}})
	st.Save()

	resp := handler.Handle(&Frame{Cmd: CmdFactoryReset})
	if resp.Status != StatusOK {
		t.Errorf("FactoryReset failed: status 0x%x", resp.Status)
	}
	if mgr.HasSettings() {
		t.Error("Expected stored settings to be wiped")
	}
	if st.Settings() != settings.Default() {
		t.Error("Expected defaults after reset")
	}
	if r, _ := st.Save(); r != settings.RebootNormal {
		t.Errorf("Expected a scheduled reboot, got %v", r)
	}
}

func TestReboot(t *testing.T) {
	handler, st, mgr := newTestHandler(t)
	defer mgr.Close()

	if resp := handler.Handle(&Frame{Cmd: CmdReboot, Payload: []byte{1}}); resp.Status != StatusOK {
		t.Fatalf("Reboot failed: status 0x%x", resp.Status)
	}
	if r, _ := st.Save(); r != settings.RebootBootsel {
		t.Errorf("Expected bootsel reboot, got %v", r)
	}
	if resp := handler.Handle(&Frame{Cmd: CmdReboot, Payload: []byte{2}}); resp.Status != StatusInvalidData {
		t.Errorf("Expected StatusInvalidData, got 0x%x", resp.Status)
	}
}

func TestGetVersion(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetVersion})
	if resp.Status != StatusOK {
		t.Fatalf("GetVersion failed: status 0x%x", resp.Status)
	}

	// Verify response format: [FirmwareVersionMajor:1][FirmwareVersionMinor:1][SettingsVersion:2]
	if len(resp.Payload) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(resp.Payload))
	}
	if v := binary.LittleEndian.Uint16(resp.Payload[2:4]); v != settings.CurrentVersion {
		t.Errorf("Expected settings version %d, got %d", settings.CurrentVersion, v)
	}
}

func TestInvalidCommand(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: 0xFF})
	if resp.Status != StatusInvalidCmd {
		t.Errorf("Expected StatusInvalidCmd, got 0x%x", resp.Status)
	}
}

func TestInvalidData(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	for _, cmd := range []uint8{CmdSetSettings, CmdSetThresholds, CmdSetDoubleTrigger, CmdSetDebounce} {
		resp := handler.Handle(&Frame{Cmd: cmd, Payload: []byte{1, 2, 3}})
		if resp.Status != StatusInvalidData {
			t.Errorf("cmd 0x%02x: expected StatusInvalidData, got 0x%x", cmd, resp.Status)
		}
	}
}

type nopPersister struct{}

func (nopPersister) LoadSettings() (*settings.Settings, error) { return nil, storage.ErrSettingsNotFound }
func (nopPersister) SaveSettings(*settings.Settings) error     { return nil }
func (nopPersister) Wipe() error                               { return nil }

func TestMissingSources(t *testing.T) {
	st := settings.NewStore(nopPersister{})
	handler := NewHandler(st, nil, nil)
	for _, cmd := range []uint8{CmdGetInputState, CmdGetStorageStats} {
		if resp := handler.Handle(&Frame{Cmd: cmd}); resp.Status != StatusError {
			t.Errorf("cmd 0x%02x: expected StatusError, got 0x%x", cmd, resp.Status)
		}
	}
}

func TestCRCMismatch(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(SyncByte)
	buf.WriteByte(CmdPing)
	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, 0)
	buf.Write(lenBytes)
	// Write wrong CRC
	buf.Write([]byte{0xFF, 0xFF})

	_, err := ReadFrame(buf)
	if err != ErrCRCMismatch {
		t.Errorf("Expected ErrCRCMismatch, got %v", err)
	}
}

func TestInvalidFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0x55) // Wrong sync

	_, err := ReadFrame(buf)
	if err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestOversizedFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write([]byte{SyncByte, CmdPing, 0x01, 0x10}) // 4097

	if _, err := ReadFrame(buf); err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
	if err := WriteFrame(io.Discard, &Frame{Payload: make([]byte, MaxPayload+1)}); err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestTruncatedFrame(t *testing.T) {
	var full bytes.Buffer
	WriteFrame(&full, &Frame{Cmd: CmdPing, Payload: []byte{1, 2, 3}})

	short := bytes.NewReader(full.Bytes()[:full.Len()-1])
	if _, err := ReadFrame(short); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestDiscoverCommand(t *testing.T) {
	handler, _, mgr := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdDiscover})
	if resp.Status != StatusOK {
		t.Fatalf("CmdDiscover failed: status 0x%x", resp.Status)
	}
	if string(resp.Payload) != DiscoverReply {
		t.Errorf("Expected payload '%s', got '%s'", DiscoverReply, string(resp.Payload))
	}
}

func BenchmarkReadFrame(b *testing.B) {
	var buf bytes.Buffer
	WriteFrame(&buf, &Frame{Cmd: CmdSetThresholds, Payload: make([]byte, ThresholdsSize)})
	raw := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ReadFrame(bytes.NewReader(raw)); err != nil {
			b.Fatal(err)
		}
	}
}
