// Package client talks to the controller's configuration protocol.
package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/drum"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
)

// DefaultTimeout bounds the wait for a response.
const DefaultTimeout = 2 * time.Second

var ErrUnexpectedResponse = errors.New("unexpected response")

// StatusError is returned for any response that is not StatusOK.
type StatusError struct {
	Cmd    uint8
	Status uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("command 0x%02X failed with status 0x%02X", e.Cmd, e.Status)
}

// Version is the answer to CmdGetVersion.
type Version struct {
	Major, Minor uint8
	Settings     uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d (settings v%d)", v.Major, v.Minor, v.Settings)
}

// StorageStats is the answer to CmdGetStorageStats.
type StorageStats struct {
	Total, Used, Free uint32
	HasSettings       bool
	Wiped             bool
}

// Client sends one request at a time.
type Client struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	timeout time.Duration
}

func New(rw io.ReadWriter) *Client {
	return &Client{rw: rw, timeout: DefaultTimeout}
}

// SetTimeout changes the response timeout. Zero waits forever.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Do sends cmd and returns the payload of an OK response.
func (c *Client) Do(cmd uint8, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := protocol.WriteFrame(c.rw, &protocol.Frame{Cmd: cmd, Payload: payload}); err != nil {
		return nil, fmt.Errorf("write 0x%02X: %w", cmd, err)
	}

	var r io.Reader = c.rw
	if c.timeout > 0 {
		r = &deadlineReader{r: c.rw, deadline: time.Now().Add(c.timeout)}
	}
	resp, err := protocol.ReadResponse(r)
	if err != nil {
		return nil, fmt.Errorf("read 0x%02X: %w", cmd, err)
	}
	if resp.Status != protocol.StatusOK {
		return nil, &StatusError{Cmd: cmd, Status: resp.Status}
	}
	return resp.Payload, nil
}

// deadlineReader turns the empty reads of a port with a read timeout into
// protocol.ErrTimeout once the deadline passed.
type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (d *deadlineReader) Read(b []byte) (int, error) {
	for {
		n, err := d.r.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		if time.Now().After(d.deadline) {
			return 0, protocol.ErrTimeout
		}
	}
}

// Ping sends data and checks it is echoed back.
func (c *Client) Ping(data []byte) error {
	got, err := c.Do(protocol.CmdPing, data)
	if err != nil {
		return err
	}
	if string(got) != string(data) {
		return ErrUnexpectedResponse
	}
	return nil
}

// Discover reports whether the port is a DonCon controller.
func (c *Client) Discover() (bool, error) {
	got, err := c.Do(protocol.CmdDiscover, nil)
	if err != nil {
		return false, err
	}
	return string(got) == protocol.DiscoverReply, nil
}

func (c *Client) Settings() (*settings.Settings, error) {
	got, err := c.Do(protocol.CmdGetSettings, nil)
	if err != nil {
		return nil, err
	}
	var s settings.Settings
	if err := s.UnmarshalBinary(got); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SetSettings(s *settings.Settings) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.Do(protocol.CmdSetSettings, data)
	return err
}

func (c *Client) SetThresholds(t drum.Thresholds) error {
	buf := make([]byte, protocol.ThresholdsSize)
	settings.PutThresholds(buf, t)
	_, err := c.Do(protocol.CmdSetThresholds, buf)
	return err
}

func (c *Client) SetDoubleTrigger(m drum.DoubleTriggerMode, t drum.Thresholds) error {
	buf := make([]byte, 1+protocol.ThresholdsSize)
	buf[0] = uint8(m)
	settings.PutThresholds(buf[1:], t)
	_, err := c.Do(protocol.CmdSetDoubleTrigger, buf)
	return err
}

func (c *Client) SetDebounce(ms uint16) error {
	_, err := c.Do(protocol.CmdSetDebounce, binary.LittleEndian.AppendUint16(nil, ms))
	return err
}

// InputState returns the drum state last seen by the controller.
func (c *Client) InputState() (input.DrumState, error) {
	got, err := c.Do(protocol.CmdGetInputState, nil)
	if err != nil {
		return input.DrumState{}, err
	}
	d, ok := protocol.DrumStateFrom(got)
	if !ok {
		return d, ErrUnexpectedResponse
	}
	return d, nil
}

func (c *Client) StorageStats() (StorageStats, error) {
	got, err := c.Do(protocol.CmdGetStorageStats, nil)
	if err != nil {
		return StorageStats{}, err
	}
	if len(got) != 13 {
		return StorageStats{}, ErrUnexpectedResponse
	}
	return StorageStats{
		Total:       binary.LittleEndian.Uint32(got[0:]),
		Used:        binary.LittleEndian.Uint32(got[4:]),
		Free:        binary.LittleEndian.Uint32(got[8:]),
		HasSettings: got[12]&protocol.StatsHasSettings != 0,
		Wiped:       got[12]&protocol.StatsWiped != 0,
	}, nil
}

func (c *Client) Version() (Version, error) {
	got, err := c.Do(protocol.CmdGetVersion, nil)
	if err != nil {
		return Version{}, err
	}
	if len(got) != 4 {
		return Version{}, ErrUnexpectedResponse
	}
	return Version{
		Major:    got[0],
		Minor:    got[1],
		Settings: binary.LittleEndian.Uint16(got[2:]),
	}, nil
}

// FactoryReset wipes the stored settings. The controller reboots.
func (c *Client) FactoryReset() error {
	_, err := c.Do(protocol.CmdFactoryReset, nil)
	return err
}

// Reboot restarts the controller, into the USB bootloader if bootsel is set.
func (c *Client) Reboot(bootsel bool) error {
	var b byte
	if bootsel {
		b = 1
	}
	_, err := c.Do(protocol.CmdReboot, []byte{b})
	return err
}
