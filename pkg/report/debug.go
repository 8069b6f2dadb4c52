package report

import (
	"strconv"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/input"
)

// Debug renders a text line with the raw value of every pad while at least
// one of them is triggered, and an empty report otherwise.
//
//	( (    0[        ](*|  812[#       ]| )    0[        ]) )    0[        ]
type Debug struct {
	buf []byte
}

func NewDebug() *Debug {
	return &Debug{buf: make([]byte, 0, 96)}
}

// barWidth is the number of cells of a full scale bar.
const barWidth = 8

func (d *Debug) pad(p input.Pad) {
	s := strconv.Itoa(int(p.Raw))
	for i := len(s); i < 4; i++ {
		d.buf = append(d.buf, ' ')
	}
	d.buf = append(d.buf, s...)
	d.buf = append(d.buf, '[')
	n := int(p.Raw) / 511
	if n > barWidth {
		n = barWidth
	}
	for i := 0; i < barWidth; i++ {
		if i < n {
			d.buf = append(d.buf, '#')
		} else {
			d.buf = append(d.buf, ' ')
		}
	}
	d.buf = append(d.buf, ']')
}

func star(on bool) byte {
	if on {
		return '*'
	}
	return ' '
}

func (d *Debug) Encode(s *input.State) []byte {
	d.buf = d.buf[:0]
	if !s.Drum.AnyTriggered() {
		return d.buf
	}
	p := &s.Drum.Pads

	d.buf = append(d.buf, '(', star(p[input.KaLeft].Triggered), '(', ' ')
	d.pad(p[input.KaLeft])
	d.buf = append(d.buf, '(', star(p[input.DonLeft].Triggered), '|', ' ')
	d.pad(p[input.DonLeft])
	d.buf = append(d.buf, '|', star(p[input.DonRight].Triggered), ')', ' ')
	d.pad(p[input.DonRight])
	d.buf = append(d.buf, ')', star(p[input.KaRight].Triggered), ')', ' ')
	d.pad(p[input.KaRight])
	d.buf = append(d.buf, '\n')
	return d.buf
}
