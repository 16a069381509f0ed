package scheduler

import (
	"time"

	"github.com/sony/gobreaker"
)

// circuitBreakerThreshold is the number of consecutive retry-exhausted
// phases that trips the breaker.
const circuitBreakerThreshold = 2

// Breaker tracks consecutive phase-retry exhaustions across scheduling
// rounds and reports whether the run should stop making forward
// progress. It wraps gobreaker.CircuitBreaker rather than a bare int
// counter so its Open/HalfOpen/Closed state is directly observable for
// diagnostics, and so a trip requires an explicit operator action to
// clear rather than resetting on a timer.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker returns a breaker that opens after circuitBreakerThreshold
// consecutive failures and never auto-resets on a timer — resuming a
// tripped run is an explicit operator action (re-running `golem run`),
// not a timed half-open probe.
func NewBreaker() *Breaker {
	st := gobreaker.Settings{
		Name:        "phase-golem-retry-exhaustion",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     365 * 24 * time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= circuitBreakerThreshold
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// RecordExhaustion marks one PhaseFailed-after-retries outcome.
func (b *Breaker) RecordExhaustion() {
	_, _ = b.cb.Execute(func() (interface{}, error) { return nil, errExhausted })
}

// RecordSuccess resets the breaker's consecutive-failure counter: any
// non-exhausted outcome clears the streak.
func (b *Breaker) RecordSuccess() {
	_, _ = b.cb.Execute(func() (interface{}, error) { return nil, nil })
}

// Tripped reports whether the breaker is open.
func (b *Breaker) Tripped() bool {
	return b.cb.State() == gobreaker.StateOpen
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const errExhausted sentinelError = "phase retry budget exhausted"
