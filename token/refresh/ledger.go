package refresh

import (
	"sync"
	"time"

	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"golang.org/x/sync/singleflight"
)

const flightKey = "refresh"

// Status is a debug snapshot of the ledger.
type Status struct {
	AttemptCount     int
	SinceLastAttempt time.Duration
	InFlight         bool
}

// Ledger records refresh attempts for the lifetime of the process and owns the
// single in-flight refresh handle. One Ledger is shared by the session store
// (which resets it) and the coordinator (which records attempts).
type Ledger struct {
	mu          sync.Mutex
	attempts    int
	lastAttempt time.Time
	inFlight    bool
	generation  uint64 // bumped on Reset so stale flights cannot settle the new state
	flight      singleflight.Group
	nowFunc     func() time.Time
}

// NewLedger returns an empty ledger that reads the time from nowFunc, or time.Now when nil.
func NewLedger(nowFunc func() time.Time) *Ledger {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Ledger{nowFunc: nowFunc}
}

// begin records an attempt if the limits allow one.
func (l *Ledger) begin(maxAttempts int, minInterval time.Duration) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if l.attempts >= maxAttempts {
		return 0, errors.ErrMaxAttempts
	}
	if !l.lastAttempt.IsZero() && now.Sub(l.lastAttempt) < minInterval {
		return 0, errors.ErrTooSoon
	}

	l.attempts++
	l.lastAttempt = now
	l.inFlight = true
	return l.generation, nil
}

func (l *Ledger) settle(generation uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if generation == l.generation {
		l.inFlight = false
	}
}

func (l *Ledger) do(fn func() (interface{}, error)) <-chan singleflight.Result {
	return l.flight.DoChan(flightKey, fn)
}

// Reset zeroes the attempt count and timestamp and detaches any in-flight
// refresh, so the next caller starts a fresh one.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts = 0
	l.lastAttempt = time.Time{}
	l.inFlight = false
	l.generation++
	l.flight.Forget(flightKey)
}

// Status returns a snapshot of the ledger for logging and debugging.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Status{AttemptCount: l.attempts, InFlight: l.inFlight}
	if !l.lastAttempt.IsZero() {
		s.SinceLastAttempt = l.nowFunc().Sub(l.lastAttempt)
	}
	return s
}
