// Package golemerr defines the error taxonomy shared across Phase Golem's
// core packages. Sentinels and typed wrappers let callers distinguish
// fatal preflight conditions from per-action failures that the run loop
// should translate into a state intent and keep going.
package golemerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds used with errors.Is. Each wraps a human-readable detail
// via fmt.Errorf("...: %w", ...) at the call site.
var (
	// ErrConfig marks a malformed or invalid configuration, fatal at preflight.
	ErrConfig = errors.New("config error")

	// ErrBacklog marks a backlog invariant violation (duplicate id, dangling
	// dependency, invalid status/phase combination, dependency cycle).
	ErrBacklog = errors.New("backlog error")

	// ErrGuardrailExceeded marks an item whose triage dimensions exceed a
	// configured maximum. Local to the item; the run continues.
	ErrGuardrailExceeded = errors.New("guardrail exceeded")

	// ErrStale marks a phase whose recorded prior-phase commit is no longer
	// reachable from the branch tip.
	ErrStale = errors.New("stale commit")

	// ErrAgentFailure marks a subprocess timeout, non-zero exit, or missing
	// or malformed result file. Retried up to max_retries.
	ErrAgentFailure = errors.New("agent failure")

	// ErrAgentBlocked marks a structured "blocked" result from the agent.
	// Never retried and never counted toward the circuit breaker.
	ErrAgentBlocked = errors.New("agent blocked")

	// ErrIO marks a backlog save, worklog append, or version-control
	// command failure.
	ErrIO = errors.New("io error")

	// ErrCancelled marks shutdown-initiated termination. Not a failure
	// condition; drives an orderly halt.
	ErrCancelled = errors.New("cancelled")
)

// ConfigErrorf wraps detail under ErrConfig.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConfig)...)
}

// BacklogErrorf wraps detail under ErrBacklog.
func BacklogErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrBacklog)...)
}

// IOErrorf wraps detail under ErrIO.
func IOErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrIO)...)
}

// IsFatal reports whether err should abort the run loop outright rather
// than being translated into a StateIntent. Only preflight-class errors
// (config, backlog invariants) and IO are fatal; everything else is
// per-action and gets folded into an intent by the executor.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrBacklog) || errors.Is(err, ErrIO)
}
