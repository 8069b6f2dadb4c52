// Package protocol implements the binary serial protocol used by the host
// configuration tool. The protocol is designed to be simple, efficient, and
// suitable for TinyGo.
//
// Frame format:
//
//	[SYNC:1][CMD:1][LEN:2][PAYLOAD:LEN][CRC:2]
//	- SYNC: 0xAA (frame start marker)
//	- CMD: Command byte
//	- LEN: Payload length (uint16, little-endian)
//	- PAYLOAD: Variable length data
//	- CRC: CRC16-CCITT of [CMD][LEN][PAYLOAD]
//
// Response format is identical, with a status byte in place of CMD.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/storage"
)

const (
	SyncByte = 0xAA

	// MaxPayload bounds the payload of a single frame.
	MaxPayload = 4096

	// Command codes (PC → Device)
	CmdGetSettings      = 0x01
	CmdSetSettings      = 0x02
	CmdSetThresholds    = 0x03
	CmdSetDoubleTrigger = 0x04
	CmdSetDebounce      = 0x05
	CmdGetInputState    = 0x06
	CmdGetStorageStats  = 0x07
	CmdPing             = 0x08
	CmdFactoryReset     = 0x09
	CmdGetVersion       = 0x10
	CmdReboot           = 0x11
	CmdDiscover         = 0x12

	// Response status codes (Device → PC)
	StatusOK              = 0x00
	StatusError           = 0x01
	StatusInvalidCmd      = 0x02
	StatusInvalidData     = 0x03
	StatusNotFound        = 0x04
	StatusNoSpace         = 0x05
	StatusVersionMismatch = 0x06
	StatusCRCError        = 0x07
)

// Firmware version reported by CmdGetVersion.
const (
	FirmwareMajor = 0
	FirmwareMinor = 3
)

// DiscoverReply is the payload answered to CmdDiscover.
const DiscoverReply = "doncon"

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrCRCMismatch  = errors.New("CRC mismatch")
	ErrTimeout      = errors.New("timeout")
)

// StateSource exposes the latest drum state seen by the peripheral core.
type StateSource interface {
	DrumState() input.DrumState
}

// StatsSource reports storage usage. storage.Manager implements it.
type StatsSource interface {
	GetStats() (*storage.Stats, error)
}

// Handler processes protocol commands.
//
// Setting changes only touch the settings store; the peripheral core notices
// the new revision, forwards it to the acquisition core and writes it to flash.
type Handler struct {
	store *settings.Store
	stats StatsSource
	state StateSource
}

// NewHandler creates a new protocol handler. stats and state may be nil, in
// which case the matching commands answer StatusError.
func NewHandler(store *settings.Store, stats StatsSource, state StateSource) *Handler {
	return &Handler{
		store: store,
		stats: stats,
		state: state,
	}
}

// Frame represents a protocol frame.
type Frame struct {
	Cmd     uint8
	Payload []byte
}

// Response represents a protocol response.
type Response struct {
	Status  uint8
	Payload []byte
}

// readPacket reads one [SYNC][CODE][LEN][PAYLOAD][CRC] packet.
func readPacket(r io.Reader) (uint8, []byte, error) {
	sync := make([]byte, 1)
	if _, err := io.ReadFull(r, sync); err != nil {
		return 0, nil, err
	}
	if sync[0] != SyncByte {
		return 0, nil, ErrInvalidFrame
	}

	// code + len
	header := make([]byte, 3)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	code := header[0]
	length := binary.LittleEndian.Uint16(header[1:])
	if length > MaxPayload {
		return 0, nil, ErrInvalidFrame
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}

	crcBytes := make([]byte, 2)
	if _, err := io.ReadFull(r, crcBytes); err != nil {
		return 0, nil, err
	}
	receivedCRC := binary.LittleEndian.Uint16(crcBytes)

	calculatedCRC := calcCRC(append(header, payload...))
	if receivedCRC != calculatedCRC {
		return 0, nil, ErrCRCMismatch
	}

	return code, payload, nil
}

// writePacket writes one packet in a single Write call.
func writePacket(w io.Writer, code uint8, payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrInvalidFrame
	}
	payloadLen := uint16(len(payload))
	frameLen := 1 + 1 + 2 + int(payloadLen) + 2 // sync + code + len + payload + crc

	buf := make([]byte, 0, frameLen)
	buf = append(buf, SyncByte, code)
	buf = binary.LittleEndian.AppendUint16(buf, payloadLen)
	buf = append(buf, payload...)

	// CRC of code + len + payload
	crc := calcCRC(buf[1:])
	buf = binary.LittleEndian.AppendUint16(buf, crc)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads and validates a request frame from the reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	cmd, payload, err := readPacket(r)
	if err != nil {
		return nil, err
	}
	return &Frame{Cmd: cmd, Payload: payload}, nil
}

// WriteFrame writes a request frame (PC side).
func WriteFrame(w io.Writer, frame *Frame) error {
	return writePacket(w, frame.Cmd, frame.Payload)
}

// ReadResponse reads and validates a response frame (PC side).
func ReadResponse(r io.Reader) (*Response, error) {
	status, payload, err := readPacket(r)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status, Payload: payload}, nil
}

// WriteResponse writes a response frame to the writer.
func WriteResponse(w io.Writer, resp *Response) error {
	return writePacket(w, resp.Status, resp.Payload)
}

// Handle processes a command frame and returns a response.
func (h *Handler) Handle(frame *Frame) *Response {
	switch frame.Cmd {
	case CmdPing:
		return h.handlePing(frame.Payload)
	case CmdGetSettings:
		return h.handleGetSettings()
	case CmdSetSettings:
		return h.handleSetSettings(frame.Payload)
	case CmdSetThresholds:
		return h.handleSetThresholds(frame.Payload)
	case CmdSetDoubleTrigger:
		return h.handleSetDoubleTrigger(frame.Payload)
	case CmdSetDebounce:
		return h.handleSetDebounce(frame.Payload)
	case CmdGetInputState:
		return h.handleGetInputState()
	case CmdGetStorageStats:
		return h.handleGetStorageStats()
	case CmdFactoryReset:
		return h.handleFactoryReset()
	case CmdGetVersion:
		return h.handleGetVersion()
	case CmdReboot:
		return h.handleReboot(frame.Payload)
	case CmdDiscover:
		return &Response{Status: StatusOK, Payload: []byte(DiscoverReply)}
	default:
		return &Response{Status: StatusInvalidCmd}
	}
}

// handlePing responds with the same payload (echo).
func (h *Handler) handlePing(payload []byte) *Response {
	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleGetSettings returns the current settings record.
func (h *Handler) handleGetSettings() *Response {
	s := h.store.Settings()
	data, err := s.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{
		Status:  StatusOK,
		Payload: data,
	}
}

// handleSetSettings replaces the whole record.
// Payload: [Settings:32 bytes]
func (h *Handler) handleSetSettings(payload []byte) *Response {
	if len(payload) != settings.Size {
		return &Response{Status: StatusInvalidData}
	}

	var s settings.Settings
	if err := s.UnmarshalBinary(payload); err != nil {
		return &Response{Status: StatusInvalidData}
	}
	if s.Version != settings.CurrentVersion {
		return &Response{Status: StatusVersionMismatch}
	}
	if err := h.store.Replace(s); err != nil {
		return &Response{Status: StatusInvalidData}
	}
	return &Response{Status: StatusOK}
}

// handleSetThresholds sets the trigger thresholds.
// Payload: [DonL:2][KaL:2][DonR:2][KaR:2]
func (h *Handler) handleSetThresholds(payload []byte) *Response {
	if len(payload) != ThresholdsSize {
		return &Response{Status: StatusInvalidData}
	}
	h.store.SetTriggerThresholds(settings.Thresholds(payload))
	return &Response{Status: StatusOK}
}

// handleSetDoubleTrigger sets the double trigger mode and its thresholds.
// Payload: [Mode:1][DonL:2][KaL:2][DonR:2][KaR:2]
func (h *Handler) handleSetDoubleTrigger(payload []byte) *Response {
	if len(payload) != 1+ThresholdsSize {
		return &Response{Status: StatusInvalidData}
	}
	if err := h.store.SetDoubleTriggerMode(drum.DoubleTriggerMode(payload[0])); err != nil {
		return &Response{Status: StatusInvalidData}
	}
	h.store.SetDoubleTriggerThresholds(settings.Thresholds(payload[1:]))
	return &Response{Status: StatusOK}
}

// handleSetDebounce sets the debounce delay.
// Payload: [DelayMs:2]
func (h *Handler) handleSetDebounce(payload []byte) *Response {
	if len(payload) != 2 {
		return &Response{Status: StatusInvalidData}
	}
	h.store.SetDebounceDelay(binary.LittleEndian.Uint16(payload))
	return &Response{Status: StatusOK}
}

// handleGetInputState returns the latest drum state.
// Response: see PutDrumState.
func (h *Handler) handleGetInputState() *Response {
	if h.state == nil {
		return &Response{Status: StatusError}
	}
	payload := make([]byte, DrumStateSize)
	PutDrumState(payload, h.state.DrumState())
	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// Storage stats flags
const (
	StatsHasSettings = 1 << 0
	StatsWiped       = 1 << 1
)

// handleGetStorageStats returns storage statistics.
// Response: [Total:4][Used:4][Free:4][Flags:1]
func (h *Handler) handleGetStorageStats() *Response {
	if h.stats == nil {
		return &Response{Status: StatusError}
	}
	stats, err := h.stats.GetStats()
	if err != nil {
		return &Response{Status: StatusError}
	}

	payload := make([]byte, 13)
	binary.LittleEndian.PutUint32(payload[0:], uint32(stats.TotalSpace))
	binary.LittleEndian.PutUint32(payload[4:], uint32(stats.UsedSpace))
	binary.LittleEndian.PutUint32(payload[8:], uint32(stats.FreeSpace))
	if stats.HasSettings {
		payload[12] |= StatsHasSettings
	}
	if stats.Wiped {
		payload[12] |= StatsWiped
	}

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleFactoryReset wipes the stored settings and schedules a reboot.
func (h *Handler) handleFactoryReset() *Response {
	if err := h.store.Reset(); err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK}
}

// handleGetVersion returns firmware and settings version info.
// Response: [FirmwareVersionMajor:1][FirmwareVersionMinor:1][SettingsVersion:2]
func (h *Handler) handleGetVersion() *Response {
	payload := make([]byte, 4)
	payload[0] = FirmwareMajor
	payload[1] = FirmwareMinor
	binary.LittleEndian.PutUint16(payload[2:], settings.CurrentVersion)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleReboot schedules a reboot, carried out by the peripheral core on its
// next Persist stage.
// Payload: [Bootsel:1] (0 = normal, 1 = USB bootloader)
func (h *Handler) handleReboot(payload []byte) *Response {
	if len(payload) != 1 || payload[0] > 1 {
		return &Response{Status: StatusInvalidData}
	}
	h.store.ScheduleReboot(payload[0] == 1)
	return &Response{Status: StatusOK}
}

// calcCRC calculates CRC16-CCITT.
// Polynomial: 0x1021, Initial: 0xFFFF
func calcCRC(data []byte) uint16 {
	var crc uint16 = 0xFFFF

	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
