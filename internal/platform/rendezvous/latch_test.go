package rendezvous

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLatchOpensOnlyAfterAllArrivals(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := NewLatch(3, func() time.Time { return fixed })

	for i := 0; i < 2; i++ {
		if l.Arrive() {
			t.Fatalf("arrival %d opened the latch early", i+1)
		}
		select {
		case <-l.Done():
			t.Fatalf("latch open after %d arrivals", i+1)
		default:
		}
		if _, ok := l.Time(); ok {
			t.Fatalf("time committed after %d arrivals", i+1)
		}
	}
	if got := l.Remaining(); got != 1 {
		t.Fatalf("remaining = %d, want 1", got)
	}
	if !l.Arrive() {
		t.Fatal("third arrival should open the latch")
	}
	if l.Arrive() {
		t.Fatal("arrival after open should be ignored")
	}

	at, err := l.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !at.Equal(fixed) {
		t.Fatalf("time = %v, want %v", at, fixed)
	}
}

func TestLatchWaitersShareInstant(t *testing.T) {
	l := NewLatch(3, nil)
	results := make(chan time.Time, 3)
	for i := 0; i < 3; i++ {
		go func() {
			l.Arrive()
			at, err := l.Wait(context.Background())
			if err != nil {
				t.Errorf("wait: %v", err)
			}
			results <- at
		}()
	}

	first := <-results
	for i := 0; i < 2; i++ {
		if got := <-results; !got.Equal(first) {
			t.Fatalf("waiter saw %v, want %v", got, first)
		}
	}
}

func TestLatchWaitCancelled(t *testing.T) {
	l := NewLatch(2, nil)
	l.Arrive()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestLatchZeroIsOpen(t *testing.T) {
	l := NewLatch(0, nil)
	if _, ok := l.Time(); !ok {
		t.Fatal("zero latch should be open")
	}
	if l.Arrive() {
		t.Fatal("arrival on open latch should be ignored")
	}
}
