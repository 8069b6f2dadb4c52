// Package debug routes diagnostic text to a platform supplied writer.
//
// The default writer discards everything. On the device main points it at the
// UART console in trace builds only. Async is called from the acquisition
// loop and only touches atomics and a non-blocking channel send.
package debug

import (
	"fmt"
	"sync/atomic"
)

// Writer outputs one line of debug text.
type Writer func(string)

func discard(string) {}

var (
	writer  atomic.Pointer[Writer]
	enabled atomic.Bool

	asyncChan atomic.Pointer[chan string]
	dropped   atomic.Uint32
)

// SetWriter sets the output function. A nil writer discards output.
func SetWriter(w Writer) {
	if w == nil {
		w = discard
	}
	writer.Store(&w)
}

// SetEnabled turns debug output on or off.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Enabled reports whether debug output is on.
func Enabled() bool {
	return enabled.Load()
}

func write(msg string) {
	if w := writer.Load(); w != nil {
		(*w)(msg)
	}
}

// Println writes msg synchronously when output is enabled.
func Println(msg string) {
	if enabled.Load() {
		write(msg)
	}
}

// Printf formats and writes synchronously when output is enabled.
func Printf(format string, args ...any) {
	if enabled.Load() {
		write(fmt.Sprintf(format, args...))
	}
}

// StartAsync starts the worker draining Async messages. Calling it again is a
// no-op.
func StartAsync(buffer int) {
	ch := make(chan string, buffer)
	if !asyncChan.CompareAndSwap(nil, &ch) {
		return
	}
	go worker(ch)
}

func worker(ch chan string) {
	for msg := range ch {
		Println(msg)
	}
}

// Async queues msg for the worker and returns immediately. The message is
// dropped when the worker is not started, output is disabled, or the buffer
// is full.
func Async(msg string) {
	if !enabled.Load() {
		return
	}
	ch := asyncChan.Load()
	if ch == nil {
		return
	}
	select {
	case *ch <- msg:
	default:
		dropped.Add(1)
	}
}

// Dropped returns the number of Async messages lost to a full buffer.
func Dropped() uint32 {
	return dropped.Load()
}
