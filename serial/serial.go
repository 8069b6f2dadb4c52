// Package serial serves the configuration protocol on the CDC port.
package serial

import (
	"context"
	"errors"
	"io"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/debug"
	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/protocol"
)

// Observer is called after every answered request.
type Observer func(frame *protocol.Frame, resp *protocol.Response)

type Serial struct {
	port    io.ReadWriter
	handler *protocol.Handler
	observe Observer

	frames uint32
	errors uint32
}

func NewSerial(port io.ReadWriter, handler *protocol.Handler) Serial {
	return Serial{
		port:    port,
		handler: handler,
	}
}

// OnExchange sets the observer, e.g. to show the last command on the display.
func (s *Serial) OnExchange(o Observer) {
	s.observe = o
}

// Handle serves requests until ctx is done or the port returns EOF.
func (s *Serial) Handle(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.HandleOne(); err != nil {
			return err
		}
	}
}

// HandleOne reads one request and writes its response. Malformed input is
// skipped and only port errors are returned.
func (s *Serial) HandleOne() error {
	frame, err := protocol.ReadFrame(s.port)
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrCRCMismatch):
		s.errors++
		return s.reply(nil, &protocol.Response{Status: protocol.StatusCRCError})
	case errors.Is(err, protocol.ErrInvalidFrame):
		// Out of sync, try the next byte.
		s.errors++
		return nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.errors++
		return io.EOF
	default:
		return err
	}

	s.frames++
	return s.reply(frame, s.handler.Handle(frame))
}

func (s *Serial) reply(frame *protocol.Frame, resp *protocol.Response) error {
	if err := protocol.WriteResponse(s.port, resp); err != nil {
		debug.Async("serial: " + err.Error())
		return err
	}
	if s.observe != nil && frame != nil {
		s.observe(frame, resp)
	}
	return nil
}

// Frames returns the number of valid requests served.
func (s *Serial) Frames() uint32 {
	return s.frames
}

// Errors returns the number of malformed requests.
func (s *Serial) Errors() uint32 {
	return s.errors
}
