// Package runloop implements the control loop: ingest the inbox,
// snapshot the backlog, ask the scheduler for this round's actions,
// dispatch them to the executor with bounded concurrency, apply the
// resulting intents through the coordinator, and check the halt
// conditions.
package runloop

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/coordinator"
	"github.com/phase-golem/golem/internal/executor"
	"github.com/phase-golem/golem/internal/golemerr"
	"github.com/phase-golem/golem/internal/scheduler"
)

// HaltReason mirrors scheduler.HaltReason plus the loop-level conditions
// the scheduler itself cannot detect (cap reached, all items quiescent,
// an operator signal).
type HaltReason string

const (
	HaltNone           HaltReason = ""
	HaltCircuitBreaker HaltReason = "CircuitBreakerTripped"
	HaltTargetFinished HaltReason = "TargetFinished"
	HaltAllQuiescent   HaltReason = "AllQuiescent"
	HaltCapReached     HaltReason = "CapReached"
	HaltSignal         HaltReason = "SignalReceived"
)

// EventSink receives a structured narration of each round, letting the
// caller wire it to whatever logger it prefers (cmd/golem wires
// charmbracelet/log; tests can use a slice-collecting sink).
type EventSink interface {
	RoundStarted(round int)
	ActionDispatched(a scheduler.Action)
	IntentApplied(itemID string, kind executor.IntentKind)
	Halted(reason HaltReason)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RoundStarted(int)                          {}
func (NopSink) ActionDispatched(scheduler.Action)         {}
func (NopSink) IntentApplied(string, executor.IntentKind) {}
func (NopSink) Halted(HaltReason)                         {}

// Loop wires the coordinator, scheduler, and executor into one runnable
// control loop.
type Loop struct {
	Cfg         *config.Config
	Coordinator *coordinator.Coordinator
	Executor    *executor.Executor
	Sink        EventSink

	// Breaker tracks consecutive retry exhaustions across rounds and
	// decides when the loop must stop making forward progress. Callers
	// normally leave this nil and let Run create one; tests that need
	// to inspect or preset breaker state can supply their own.
	Breaker *scheduler.Breaker

	// MaxRounds caps the number of scheduling rounds ("cap reached"
	// halt condition); 0 means unbounded.
	MaxRounds int
	TargetID  string
}

// Run executes rounds until a halt condition is reached or ctx is
// cancelled, returning the reason the loop stopped.
func (l *Loop) Run(ctx context.Context) (HaltReason, error) {
	sink := l.Sink
	if sink == nil {
		sink = NopSink{}
	}
	breaker := l.Breaker
	if breaker == nil {
		breaker = scheduler.NewBreaker()
	}

	state := scheduler.RunState{TargetID: l.TargetID}
	round := 0

	for {
		select {
		case <-ctx.Done():
			sink.Halted(HaltSignal)
			return HaltSignal, nil
		default:
		}

		if l.MaxRounds > 0 && round >= l.MaxRounds {
			sink.Halted(HaltCapReached)
			return HaltCapReached, nil
		}
		round++
		sink.RoundStarted(round)

		if err := l.Coordinator.IngestInbox(l.Cfg.Project.InboxPath); err != nil {
			return HaltNone, fmt.Errorf("ingest inbox: %w", err)
		}

		state.BreakerTripped = breaker.Tripped()
		snapshot := l.Coordinator.GetSnapshot()
		decision := scheduler.SelectActions(snapshot, state, l.Cfg)

		switch decision.Halt {
		case scheduler.HaltCircuitBreaker:
			sink.Halted(HaltCircuitBreaker)
			return HaltCircuitBreaker, nil
		case scheduler.HaltTargetFinished:
			sink.Halted(HaltTargetFinished)
			return HaltTargetFinished, nil
		}

		if len(decision.Actions) == 0 {
			sink.Halted(HaltAllQuiescent)
			return HaltAllQuiescent, nil
		}

		if err := l.dispatch(ctx, decision.Actions, snapshot, sink, breaker); err != nil {
			return HaltNone, err
		}
	}
}

// dispatch runs every action concurrently (bounded by max_concurrent),
// applies each resulting intent, and records each outcome on breaker so
// consecutive retry exhaustions accumulate across rounds rather than
// resetting every time dispatch is called.
func (l *Loop) dispatch(ctx context.Context, actions []scheduler.Action, snapshot *backlog.BacklogFile, sink EventSink, breaker *scheduler.Breaker) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.Cfg.Execution.MaxConcurrent)

	intents := make([]executor.Intent, len(actions))
	for i, action := range actions {
		i, action := i, action
		sink.ActionDispatched(action)
		g.Go(func() error {
			intents[i] = l.Executor.Execute(gctx, action, snapshot, "")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, intent := range intents {
		if intent.ItemID == "" {
			continue // a skip action (e.g. dependency-blocked): the executor returned a zero Intent
		}
		if err := l.Coordinator.ApplyIntent(intent); err != nil {
			if golemerr.IsFatal(err) {
				return err
			}
		}
		sink.IntentApplied(intent.ItemID, intent.Kind)
		if intent.Kind == executor.IntentPhaseFailed {
			breaker.RecordExhaustion()
		} else {
			breaker.RecordSuccess()
		}
	}
	return nil
}
