package redis

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // normal operation
	BreakerOpen                         // tripped, calls rejected
	BreakerHalfOpen                     // probing with one call
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned while the breaker rejects calls.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker trips after maxFailures consecutive failures and rejects
// calls for resetTimeout. The first call after the timeout probes the
// backend: success closes the breaker, failure reopens it.
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time

	// optional transition callback
	OnStateChange func(from, to BreakerState)
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == BreakerOpen {
		if time.Since(b.lastFailure) <= b.resetTimeout {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.transition(BreakerHalfOpen)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
			b.transition(BreakerOpen)
		}
		return err
	}
	if b.state == BreakerHalfOpen {
		b.transition(BreakerClosed)
	}
	b.failures = 0
	return nil
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if to == BreakerClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}
