// Package mailbox provides the single-slot channels used between the two
// cores.
//
// A Mailbox holds the latest value only: a send overwrites whatever the reader
// has not picked up yet. A Queue holds one value as well but a send waits for
// the slot to be free, so no message is ever lost. Each instance is meant to
// have exactly one writer and one reader.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrClosed = errors.New("mailbox: closed")
)

// Mailbox is a latest-value slot.
type Mailbox[T any] struct {
	mu          sync.Mutex
	value       T
	full        bool
	overwritten uint32
}

// New returns an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{}
}

// TrySend stores v, replacing an unread value. It never blocks and reports
// whether the slot was empty.
func (m *Mailbox[T]) TrySend(v T) bool {
	m.mu.Lock()
	wasEmpty := !m.full
	if !wasEmpty {
		m.overwritten++
	}
	m.value = v
	m.full = true
	m.mu.Unlock()
	return wasEmpty
}

// TryReceive takes the stored value if there is one.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if !m.full {
		return zero, false
	}
	v := m.value
	m.value = zero
	m.full = false
	return v, true
}

// Overwritten returns how many unread values were replaced.
func (m *Mailbox[T]) Overwritten() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overwritten
}

// Queue is a one-element queue for control messages.
type Queue[T any] struct {
	ch     chan T
	done   chan struct{}
	closer sync.Once
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ch: make(chan T, 1), done: make(chan struct{})}
}

// Send waits until the slot is free, the queue is closed or ctx ends.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- v:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend stores v only if the slot is free.
func (q *Queue[T]) TrySend(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// TryReceive takes the pending message, if any.
func (q *Queue[T]) TryReceive() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Receive waits for a message.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-q.ch:
		return v, nil
	case <-q.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close releases blocked senders. Pending messages can still be received
// with TryReceive.
func (q *Queue[T]) Close() {
	q.closer.Do(func() { close(q.done) })
}
