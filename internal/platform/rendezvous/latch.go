package rendezvous

import (
	"context"
	"sync"
	"time"
)

// Latch opens after a fixed number of arrivals and records the instant it
// opened. Every waiter observes the same instant.
type Latch struct {
	mu        sync.Mutex
	remaining int
	now       func() time.Time
	at        time.Time
	open      chan struct{}
}

// NewLatch returns a latch that opens after n arrivals. A nil clock uses
// time.Now. A latch with n <= 0 is open immediately.
func NewLatch(n int, clock func() time.Time) *Latch {
	if clock == nil {
		clock = time.Now
	}
	l := &Latch{remaining: n, now: clock, open: make(chan struct{})}
	if n <= 0 {
		l.remaining = 0
		l.at = clock()
		close(l.open)
	}
	return l
}

// Arrive counts one arrival. It reports whether this arrival opened the
// latch. Arrivals after the latch opened are ignored.
func (l *Latch) Arrive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining == 0 {
		return false
	}
	l.remaining--
	if l.remaining > 0 {
		return false
	}
	l.at = l.now()
	close(l.open)
	return true
}

// Remaining returns the number of arrivals still needed.
func (l *Latch) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

// Done is closed when the latch opens.
func (l *Latch) Done() <-chan struct{} {
	return l.open
}

// Time returns the instant the latch opened. ok is false while it is closed.
func (l *Latch) Time() (at time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining > 0 {
		return time.Time{}, false
	}
	return l.at, true
}

// Wait blocks until the latch opens or ctx ends.
func (l *Latch) Wait(ctx context.Context) (time.Time, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-l.open:
	case <-ctx.Done():
		select {
		case <-l.open:
		default:
			return time.Time{}, ctx.Err()
		}
	}
	at, _ := l.Time()
	return at, nil
}
