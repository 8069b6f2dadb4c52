package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMailboxOverwrites(t *testing.T) {
	m := New[int]()

	if _, ok := m.TryReceive(); ok {
		t.Fatal("empty mailbox should not yield a value")
	}

	if !m.TrySend(1) {
		t.Error("first send should find the slot empty")
	}
	if m.TrySend(2) {
		t.Error("second send should report the overwrite")
	}

	v, ok := m.TryReceive()
	if !ok || v != 2 {
		t.Errorf("TryReceive: expected 2, got %d (%v)", v, ok)
	}
	if _, ok := m.TryReceive(); ok {
		t.Error("slot should be empty after receive")
	}
	if m.Overwritten() != 1 {
		t.Errorf("Overwritten: expected 1, got %d", m.Overwritten())
	}
}

func TestMailboxSingleWriterSingleReader(t *testing.T) {
	type snapshot struct{ seq, check uint32 }
	m := New[snapshot]()

	const n = 20000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := uint32(1); i <= n; i++ {
			m.TrySend(snapshot{seq: i, check: ^i})
		}
	}()

	var errs []string
	go func() {
		defer wg.Done()
		var last uint32
		deadline := time.Now().Add(5 * time.Second)
		for last < n && time.Now().Before(deadline) {
			s, ok := m.TryReceive()
			if !ok {
				continue
			}
			if s.check != ^s.seq {
				errs = append(errs, "torn value")
			}
			if s.seq <= last {
				errs = append(errs, "value went backwards")
			}
			last = s.seq
		}
		if last != n {
			errs = append(errs, "reader never saw the final value")
		}
	}()

	wg.Wait()
	for _, e := range errs {
		t.Error(e)
	}
}

func TestQueueBlocksWhenFull(t *testing.T) {
	q := NewQueue[string]()
	ctx := context.Background()

	if err := q.Send(ctx, "enter"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if q.TrySend("other") {
		t.Error("TrySend on a full queue should fail")
	}

	sent := make(chan error, 1)
	go func() { sent <- q.Send(ctx, "exit") }()

	select {
	case <-sent:
		t.Fatal("Send should block while the slot is taken")
	case <-time.After(20 * time.Millisecond):
	}

	if v, ok := q.TryReceive(); !ok || v != "enter" {
		t.Fatalf("TryReceive: expected enter, got %q", v)
	}
	if err := <-sent; err != nil {
		t.Fatalf("blocked Send: %v", err)
	}
	if v, _ := q.Receive(ctx); v != "exit" {
		t.Errorf("Receive: expected exit, got %q", v)
	}
}

func TestQueueNeverDrops(t *testing.T) {
	q := NewQueue[int]()
	ctx := context.Background()
	const n = 1000

	go func() {
		for i := 0; i < n; i++ {
			q.Send(ctx, i)
		}
	}()

	for i := 0; i < n; i++ {
		v, err := q.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if v != i {
			t.Fatalf("Receive: expected %d, got %d", i, v)
		}
	}
}

func TestQueueCloseAndCancel(t *testing.T) {
	q := NewQueue[int]()
	q.TrySend(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send: expected deadline exceeded, got %v", err)
	}

	q.Close()
	q.Close()
	if err := q.Send(context.Background(), 3); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close: expected ErrClosed, got %v", err)
	}
	if v, ok := q.TryReceive(); !ok || v != 1 {
		t.Errorf("pending message should survive Close, got %d (%v)", v, ok)
	}
	if _, err := q.Receive(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive after Close: expected ErrClosed, got %v", err)
	}
}
