package display

import (
	"fmt"
	"strings"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"
)

// Text grid of the 128x64 panel with an 8x8 cell.
const (
	Cols = 16
	Rows = 8
)

// View is everything the screen shows. It is a plain value so the peripheral
// core can skip redraws when nothing changed.
type View struct {
	UsbMode  settings.UsbMode
	Player   uint8 // 0 while the host has not assigned one
	Menu     bool
	Drum     input.DrumState
	Settings settings.Settings
	Status   string
}

// Lines is one rendered screen.
type Lines [Rows]string

// Formatter turns a View into text rows.
type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders the idle or the menu screen.
func (f *Formatter) Format(v *View) Lines {
	var l Lines
	if v.Menu {
		f.menu(v, &l)
	} else {
		f.idle(v, &l)
	}
	for i := range l {
		l[i] = truncate(l[i], Cols)
	}
	return l
}

// barWidth leaves room for the pad name and trigger mark.
const barWidth = Cols - 5

func (f *Formatter) idle(v *View, l *Lines) {
	l[0] = v.UsbMode.String()
	if v.Player == 0 {
		l[1] = "Player -"
	} else {
		l[1] = fmt.Sprintf("Player %d", v.Player)
	}
	l[2] = fmt.Sprintf("Roll %4d (%d)", v.Drum.CurrentRoll, v.Drum.PreviousRoll)
	l[3] = v.Status

	for i, id := range input.Pads {
		p := v.Drum.Pads[id]
		mark := ' '
		if p.Triggered {
			mark = '*'
		}
		n := int(p.Analog) * barWidth / 65536
		l[4+i] = fmt.Sprintf("%-4s%c%s", id, mark, strings.Repeat("#", n))
	}
}

func (f *Formatter) menu(v *View, l *Lines) {
	s := &v.Settings
	l[0] = "Settings"
	l[1] = fmt.Sprintf("ThL %5d %5d", s.TriggerThresholds.DonLeft, s.TriggerThresholds.KaLeft)
	l[2] = fmt.Sprintf("ThR %5d %5d", s.TriggerThresholds.DonRight, s.TriggerThresholds.KaRight)
	l[3] = fmt.Sprintf("DtL %5d %5d", s.DoubleTriggerThresholds.DonLeft, s.DoubleTriggerThresholds.KaLeft)
	l[4] = fmt.Sprintf("DtR %5d %5d", s.DoubleTriggerThresholds.DonRight, s.DoubleTriggerThresholds.KaRight)
	l[5] = "Dbl " + s.DoubleTriggerMode.String()
	l[6] = fmt.Sprintf("Debounce %dms", s.DebounceDelayMs)
	l[7] = "Start+Sel: exit"
}

// FormatExchange summarizes a configuration request and its response for the
// status row, e.g. "SetThr OK".
func (f *Formatter) FormatExchange(frame *protocol.Frame, resp *protocol.Response) string {
	return truncate(commandName(frame.Cmd)+" "+statusName(resp.Status), Cols)
}

// FormatError formats an error for the status row.
func (f *Formatter) FormatError(err error) string {
	return truncate("ERR "+err.Error(), Cols)
}

func commandName(cmd uint8) string {
	switch cmd {
	case protocol.CmdGetSettings:
		return "GetSet"
	case protocol.CmdSetSettings:
		return "SetSet"
	case protocol.CmdSetThresholds:
		return "SetThr"
	case protocol.CmdSetDoubleTrigger:
		return "SetDbl"
	case protocol.CmdSetDebounce:
		return "SetDeb"
	case protocol.CmdGetInputState:
		return "GetIn"
	case protocol.CmdGetStorageStats:
		return "GetStor"
	case protocol.CmdPing:
		return "Ping"
	case protocol.CmdFactoryReset:
		return "FctRst"
	case protocol.CmdGetVersion:
		return "GetVer"
	case protocol.CmdReboot:
		return "Reboot"
	case protocol.CmdDiscover:
		return "Disc"
	default:
		return fmt.Sprintf("Cmd%02X", cmd)
	}
}

func statusName(status uint8) string {
	switch status {
	case protocol.StatusOK:
		return "OK"
	case protocol.StatusError:
		return "Err"
	case protocol.StatusInvalidCmd:
		return "InvCmd"
	case protocol.StatusInvalidData:
		return "InvData"
	case protocol.StatusNotFound:
		return "NotFnd"
	case protocol.StatusNoSpace:
		return "NoSpace"
	case protocol.StatusVersionMismatch:
		return "VerMis"
	case protocol.StatusCRCError:
		return "CRC"
	default:
		return fmt.Sprintf("Sts%02X", status)
	}
}

// truncate limits a string to maxLen characters, adding ".." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
