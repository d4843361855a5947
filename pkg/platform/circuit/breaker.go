// Package circuit provides a small circuit breaker for calls to remote providers.
package circuit

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow normally.
	StateClosed State = iota
	// StateOpen means the provider is failing and calls are short-circuited
	// until the cooldown elapses.
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange represents a circuit breaker state transition.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker opens after FailureThreshold consecutive failures. While open,
// Allow rejects calls until Cooldown has passed since the last failure; after
// that a probe is let through, and SuccessThreshold consecutive successes close
// the circuit again.
type Breaker struct {
	mu               sync.Mutex
	state            State
	name             string
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	lastFailure      time.Time
	now              func() time.Time
}

// Option configures a Breaker instance.
type Option func(*Breaker)

// WithFailureThreshold sets the number of consecutive failures to open the circuit.
// Default is 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the number of consecutive probe successes to close
// the circuit. Default is 1.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long an open circuit rejects calls. Default is 30s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a circuit breaker with the given name and options.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 1,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name returns the circuit breaker's name for logging/metrics.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return true
	}
	return b.now().Sub(b.lastFailure) >= b.cooldown
}

// RecordFailure records a failed call and reports whether the circuit just opened.
func (b *Breaker) RecordFailure() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.successCount = 0
	b.lastFailure = b.now()

	if b.state == StateClosed && b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		return StateChange{Opened: true}
	}
	return StateChange{}
}

// RecordSuccess records a successful call and reports whether the circuit just closed.
func (b *Breaker) RecordSuccess() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			return StateChange{Closed: true}
		}
		return StateChange{}
	}

	b.failureCount = 0
	return StateChange{}
}

// Reset resets the circuit breaker to closed state with zero counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
}
