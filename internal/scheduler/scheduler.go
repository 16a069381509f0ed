// Package scheduler implements the pure decision function that walks a
// backlog snapshot and run state to an ordered list of Actions, honoring
// the WIP bound, destructive exclusivity, dependency gating, and the
// circuit breaker.
package scheduler

import (
	"sort"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
)

// ActionKind names one of the scheduler-emitted action shapes.
type ActionKind string

const (
	ActionTriage      ActionKind = "triage"
	ActionRunPrePhase ActionKind = "run_pre_phase"
	// ActionReady transitions a Scoping item whose pre-phases are
	// exhausted into Ready. It is distinct from ActionPromote because
	// only Ready→InProgress actually creates a new in-progress slot —
	// folding this into ActionPromote would let Scoping items skip
	// Ready and bypass the max_wip bound entirely.
	ActionReady   ActionKind = "ready"
	ActionPromote ActionKind = "promote"
	ActionRunPhase ActionKind = "run_phase"
	// ActionSkip carries a diagnostic reason for an otherwise-eligible item
	// that the dependency gate held back; the executor never dispatches it.
	ActionSkip ActionKind = "skip"
)

// Action is one scheduler-emitted unit of work.
type Action struct {
	Kind        ActionKind
	ItemID      string
	PhaseName   string
	IsDestructive bool
	// Reason explains why an otherwise-eligible item was skipped, surfaced
	// for operator-facing diagnostics.
	Reason string
}

// HaltReason names why the scheduler stopped producing actions.
type HaltReason string

const (
	HaltNone            HaltReason = ""
	HaltCircuitBreaker  HaltReason = "CircuitBreaker"
	HaltTargetFinished  HaltReason = "TargetFinished"
)

// RunState is the scheduler's non-backlog input: counters and operator
// directives that persist across rounds but are not part of the
// persisted BacklogFile.
type RunState struct {
	// BreakerTripped reports whether the caller's circuit breaker has
	// already opened from consecutive retry exhaustions; the breaker
	// itself is owned and advanced by the run loop, not this package.
	BreakerTripped bool
	TargetID       string
	RunningDestructive bool
	RunningCount       int
}

// Decision is the scheduler's full output for one round.
type Decision struct {
	Actions []Action
	Halt    HaltReason
}

// SelectActions is the pure contract function: deterministic, free of
// I/O, observing wall-clock only via RunState.
func SelectActions(snapshot *backlog.BacklogFile, state RunState, cfg *config.Config) Decision {
	if state.BreakerTripped {
		return Decision{Halt: HaltCircuitBreaker}
	}

	items := snapshot.Items
	if state.TargetID != "" {
		items = restrictToTarget(snapshot, state.TargetID)
		if targetDone(snapshot, state.TargetID) {
			return Decision{Halt: HaltTargetFinished}
		}
	}

	byID := indexByID(snapshot)
	destructiveInFlight := state.RunningDestructive
	runningCount := state.RunningCount

	var actions []Action

	// Step 1: InProgress items, advance-furthest-first.
	inProgress := filterStatus(items, backlog.StatusInProgress)
	sort.SliceStable(inProgress, func(i, j int) bool {
		return advanceFurthestFirstLess(inProgress[i], inProgress[j])
	})
	for _, it := range inProgress {
		if destructiveInFlight {
			break
		}
		if runningCount >= cfg.Execution.MaxConcurrent {
			break
		}
		if blockedByDependency(it, byID) {
			actions = append(actions, Action{Kind: ActionSkip, ItemID: it.ID, Reason: "unmet dependency"})
			continue
		}
		phase := currentMainPhase(it, cfg)
		if phase == nil {
			continue
		}
		if phase.IsDestructive && runningCount > 0 {
			continue // a destructive phase never joins other Run* actions
		}
		actions = append(actions, Action{Kind: ActionRunPhase, ItemID: it.ID, PhaseName: phase.Name, IsDestructive: phase.IsDestructive})
		runningCount++
		if phase.IsDestructive {
			destructiveInFlight = true
			break // destructive exclusivity: runs alone this round
		}
	}

	wipCount := len(filterStatus(snapshot.Items, backlog.StatusInProgress))

	// Step 2: Scoping items with remaining pre-phases.
	if !destructiveInFlight {
		scoping := filterStatus(items, backlog.StatusScoping)
		sortByUpdatedThenID(scoping)
		for _, it := range scoping {
			if len(it.RemainingPrePhases) == 0 {
				continue
			}
			if blockedByDependency(it, byID) {
				continue
			}
			actions = append(actions, Action{Kind: ActionRunPrePhase, ItemID: it.ID, PhaseName: it.RemainingPrePhases[0]})
		}

		// Step 3: Scoping items whose pre-phases are exhausted and pass
		// guardrails move to Ready. This does not touch WIP — the item
		// isn't InProgress yet, so max_wip gates step 4 instead.
		for _, it := range scoping {
			if len(it.RemainingPrePhases) != 0 {
				continue
			}
			if blockedByDependency(it, byID) {
				continue
			}
			if exceedsGuardrails(it, cfg) {
				continue
			}
			actions = append(actions, Action{Kind: ActionReady, ItemID: it.ID})
		}
	}

	// Step 4: Ready items promote into InProgress, bounded by max_wip —
	// the only step that actually creates a new in-progress slot.
	ready := filterStatus(items, backlog.StatusReady)
	sortByUpdatedThenID(ready)
	for _, it := range ready {
		if wipCount >= cfg.Execution.MaxWIP {
			break
		}
		if blockedByDependency(it, byID) {
			actions = append(actions, Action{Kind: ActionSkip, ItemID: it.ID, Reason: "unmet dependency"})
			continue
		}
		actions = append(actions, Action{Kind: ActionPromote, ItemID: it.ID})
		wipCount++
	}

	// Step 5: New items.
	newItems := filterStatus(items, backlog.StatusNew)
	sortByUpdatedThenID(newItems)
	for _, it := range newItems {
		actions = append(actions, Action{Kind: ActionTriage, ItemID: it.ID})
	}

	return Decision{Actions: actions}
}

func indexByID(b *backlog.BacklogFile) map[string]backlog.Item {
	m := make(map[string]backlog.Item, len(b.Items))
	for _, it := range b.Items {
		m[it.ID] = it
	}
	return m
}

func filterStatus(items []backlog.Item, status backlog.Status) []backlog.Item {
	var out []backlog.Item
	for _, it := range items {
		if it.Status == status {
			out = append(out, it)
		}
	}
	return out
}

func advanceFurthestFirstLess(a, b backlog.Item) bool {
	ar, br := a.PhasesRemaining(), b.PhasesRemaining()
	if ar != br {
		return ar < br
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
	return a.ID < b.ID
}

func sortByUpdatedThenID(items []backlog.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.Before(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func blockedByDependency(it backlog.Item, byID map[string]backlog.Item) bool {
	for _, dep := range it.Dependencies {
		if d, ok := byID[dep]; !ok || d.Status != backlog.StatusDone {
			return true
		}
	}
	return false
}

func currentMainPhase(it backlog.Item, cfg *config.Config) *backlog.PhaseConfig {
	if it.CurrentPhase == nil {
		return nil
	}
	pipeline, ok := cfg.Pipelines[it.PipelineType]
	if !ok {
		return nil
	}
	for i := range pipeline.Phases {
		if pipeline.Phases[i].Name == *it.CurrentPhase {
			return &pipeline.Phases[i]
		}
	}
	return nil
}

func exceedsGuardrails(it backlog.Item, cfg *config.Config) bool {
	return len(config.GuardrailViolations(it, cfg)) > 0
}

// restrictToTarget returns targetID and its unmet-dependency closure:
// ancestors it transitively needs Done.
func restrictToTarget(b *backlog.BacklogFile, targetID string) []backlog.Item {
	byID := indexByID(b)
	closure := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if closure[id] {
			return
		}
		it, ok := byID[id]
		if !ok {
			return
		}
		closure[id] = true
		if it.Status == backlog.StatusDone {
			return
		}
		for _, dep := range it.Dependencies {
			visit(dep)
		}
	}
	visit(targetID)

	var out []backlog.Item
	for _, it := range b.Items {
		if closure[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func targetDone(b *backlog.BacklogFile, targetID string) bool {
	it := b.FindItem(targetID)
	return it != nil && it.Status == backlog.StatusDone
}
