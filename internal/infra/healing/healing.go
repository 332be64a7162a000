// Package healing keeps a failing store from being hammered.
//
// A Breaker trips after consecutive store failures and rejects calls until
// a cool-down passes, then lets trial calls through:
//   - closed: calls pass; failures count toward the threshold
//   - open: calls fail fast with ErrCircuitOpen
//   - half-open: calls pass; enough successes close it, any failure reopens
package healing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/infra/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// String returns the state name used in logs and health output.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures that trip the breaker
	Cooldown         time.Duration // time spent open before probing
	TrialSuccesses   int           // half-open successes needed to close
}

// DefaultBreakerConfig trips after 5 failures and retries after 15 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         15 * time.Second,
		TrialSuccesses:   2,
	}
}

// Breaker is a circuit breaker safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	name      string
	config    BreakerConfig
	state     State
	failures  int
	successes int
	trippedAt time.Time
	trips     int
	now       func() time.Time
}

// NewBreaker creates a closed breaker. Zero config fields take defaults.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.TrialSuccesses <= 0 {
		cfg.TrialSuccesses = def.TrialSuccesses
	}
	b := &Breaker{name: name, config: cfg, now: time.Now}
	b.publish()
	return b
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current() == Open {
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	return nil
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case HalfOpen:
		b.successes++
		if b.successes >= b.config.TrialSuccesses {
			b.state = Closed
			b.failures = 0
			b.successes = 0
		}
	case Closed:
		b.failures = 0
	}
	b.publish()
}

// Failure records a failed call and may trip the breaker.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case Closed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.trip()
		}
	case HalfOpen:
		b.trip()
	}
	b.publish()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Failures  int       `json:"failures"`
	Trips     int       `json:"trips"`
	TrippedAt time.Time `json:"tripped_at,omitzero"`
}

// Snapshot returns the current view.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:      b.name,
		State:     b.current().String(),
		Failures:  b.failures,
		Trips:     b.trips,
		TrippedAt: b.trippedAt,
	}
}

// current moves an expired open breaker to half-open. Caller holds mu.
func (b *Breaker) current() State {
	if b.state == Open && b.now().Sub(b.trippedAt) >= b.config.Cooldown {
		b.state = HalfOpen
		b.successes = 0
	}
	return b.state
}

func (b *Breaker) trip() {
	b.state = Open
	b.trippedAt = b.now()
	b.trips++
	metrics.BreakerTrips.WithLabelValues(b.name).Inc()
}

func (b *Breaker) publish() {
	metrics.BreakerState.WithLabelValues(b.name).Set(float64(b.state))
}
