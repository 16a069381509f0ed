package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/phase-golem/golem/internal/agentrun"
	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/scheduler"
	"github.com/phase-golem/golem/internal/vcs"
)

// Executor realizes one scheduler Action against a backlog snapshot.
type Executor struct {
	Cfg     *config.Config
	Spawner agentrun.Spawner
	Repo    *vcs.Repo // nil when staleness checks should be skipped
}

// New returns an Executor.
func New(cfg *config.Config, spawner agentrun.Spawner, repo *vcs.Repo) *Executor {
	return &Executor{Cfg: cfg, Spawner: spawner, Repo: repo}
}

// Execute runs action against the item found in snapshot and returns the
// resulting Intent for the coordinator to apply.
func (e *Executor) Execute(ctx context.Context, action scheduler.Action, snapshot *backlog.BacklogFile, previousSummary string) Intent {
	it := snapshot.FindItem(action.ItemID)
	if it == nil {
		return Intent{Kind: IntentPhaseFailed, ItemID: action.ItemID, Phase: action.PhaseName, Reason: "item not found in snapshot"}
	}

	switch action.Kind {
	case scheduler.ActionTriage:
		// Triage spawns an agent to assess the item; its reported
		// dimensions are guardrail-gated exactly like a main phase result.
		return e.runTriage(ctx, *it)
	case scheduler.ActionReady:
		// Ready is a pure bookkeeping transition applied directly by the
		// coordinator; the executor has nothing to spawn (the scheduler
		// only emits it for items that pass guardrails). Kept
		// separate from ActionPromote so the coordinator never mistakes
		// it for the WIP-gated Ready→InProgress transition.
		return Intent{Kind: IntentReadied, ItemID: it.ID}
	case scheduler.ActionPromote:
		// Promote is a pure bookkeeping transition applied directly by
		// the coordinator; the executor has nothing to spawn (guardrails
		// were already checked when the item was triaged).
		return Intent{Kind: IntentPromoted, ItemID: it.ID}
	case scheduler.ActionSkip:
		// A dependency-gated item the scheduler surfaced for diagnostics
		// only; nothing to spawn and nothing for the coordinator to apply.
		return Intent{}
	}

	phaseName := action.PhaseName
	pipeline := e.Cfg.Pipelines[it.PipelineType]
	phase, isPrePhase := findPhase(pipeline, phaseName)

	if !isPrePhase {
		if violations := checkGuardrails(*it, e.Cfg); len(violations) > 0 {
			return Intent{Kind: IntentGuardrailExceeded, ItemID: it.ID, Phase: phaseName, GuardrailReasons: violations}
		}
	}

	if phase.IsDestructive {
		stale, staleAction, err := staleCheck(*it, phase, e.Repo)
		if err != nil {
			return Intent{Kind: IntentPhaseFailed, ItemID: it.ID, Phase: phaseName, Reason: fmt.Sprintf("staleness check failed: %v", err)}
		}
		if stale && staleAction == StaleBlocked {
			return Intent{Kind: IntentStale, ItemID: it.ID, Phase: phaseName, StaleAction: StaleBlocked, Reason: "last_commit_sha unreachable from branch tip"}
		}
	}

	return e.runWithRetries(ctx, *it, phaseName, action.Kind, previousSummary)
}

func findPhase(pipeline backlog.PipelineConfig, name string) (backlog.PhaseConfig, bool) {
	for _, p := range pipeline.PrePhases {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range pipeline.Phases {
		if p.Name == name {
			return p, false
		}
	}
	return backlog.PhaseConfig{}, false
}

// resultPath is deterministic per (item, phase) so a retry's prior
// result never leaks into the next attempt.
func resultPath(changesDir, itemID, phase string) string {
	return filepath.Join(changesDir, itemID, phase+".result.json")
}

func (e *Executor) runWithRetries(ctx context.Context, it backlog.Item, phaseName string, kind scheduler.ActionKind, previousSummary string) Intent {
	var failureContext []string
	timeout := time.Duration(e.Cfg.Execution.PhaseTimeoutMinutes) * time.Minute
	path := resultPath(e.Cfg.Project.ChangesDir, it.ID, phaseName)

	attempts := e.Cfg.Execution.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		prompt, err := BuildPrompt(it, phaseName, previousSummary, failureContext)
		if err != nil {
			return Intent{Kind: IntentPhaseFailed, ItemID: it.ID, Phase: phaseName, Reason: err.Error()}
		}

		outcome := e.Spawner.Run(ctx, prompt, path, timeout)

		switch outcome.Result {
		case agentrun.ResultOk:
			return e.classifyPhaseResult(it, phaseName, kind, outcome.Phase)

		case agentrun.ResultCancelled:
			return Intent{Kind: IntentPhaseFailed, ItemID: it.ID, Phase: phaseName, Reason: "cancelled"}

		default:
			failureContext = append(failureContext, fmt.Sprintf("attempt %d: %s (%s)", attempt+1, outcome.Result, outcome.Detail))
		}
	}

	return Intent{Kind: IntentPhaseFailed, ItemID: it.ID, Phase: phaseName, Reason: fmt.Sprintf("exhausted %d attempts: %v", attempts, failureContext)}
}

// triagePhaseName is the reserved, non-pipeline-configured phase name
// used for the triage assessment's prompt and result-file path.
const triagePhaseName = "triage"

// runTriage spawns the triage assessment agent with the same retry
// discipline as a main phase, then guardrail-gates the dimensions it
// reports before the coordinator is allowed to move the item to Scoping.
func (e *Executor) runTriage(ctx context.Context, it backlog.Item) Intent {
	var failureContext []string
	timeout := time.Duration(e.Cfg.Execution.PhaseTimeoutMinutes) * time.Minute
	path := resultPath(e.Cfg.Project.ChangesDir, it.ID, triagePhaseName)

	attempts := e.Cfg.Execution.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		prompt, err := BuildPrompt(it, triagePhaseName, "", failureContext)
		if err != nil {
			return Intent{Kind: IntentPhaseFailed, ItemID: it.ID, Phase: triagePhaseName, Reason: err.Error()}
		}

		outcome := e.Spawner.Run(ctx, prompt, path, timeout)
		switch outcome.Result {
		case agentrun.ResultOk:
			result := outcome.Phase
			if result.Outcome == agentrun.OutcomeBlocked {
				return Intent{Kind: IntentPhaseBlocked, ItemID: it.ID, Phase: triagePhaseName, Reason: result.Summary}
			}
			assessed := mergeAssessments(it, result.UpdatedAssessments)
			if violations := checkGuardrails(assessed, e.Cfg); len(violations) > 0 {
				return Intent{
					Kind: IntentGuardrailExceeded, ItemID: it.ID, Phase: triagePhaseName,
					GuardrailReasons: violations, UpdatedAssessments: result.UpdatedAssessments,
				}
			}
			return Intent{
				Kind: IntentTriaged, ItemID: it.ID, Phase: triagePhaseName,
				ResultSummary: result.Summary, UpdatedAssessments: result.UpdatedAssessments, FollowUps: result.FollowUps,
			}

		case agentrun.ResultCancelled:
			return Intent{Kind: IntentPhaseFailed, ItemID: it.ID, Phase: triagePhaseName, Reason: "cancelled"}

		default:
			failureContext = append(failureContext, fmt.Sprintf("attempt %d: %s (%s)", attempt+1, outcome.Result, outcome.Detail))
		}
	}

	return Intent{Kind: IntentPhaseFailed, ItemID: it.ID, Phase: triagePhaseName, Reason: fmt.Sprintf("exhausted %d attempts: %v", attempts, failureContext)}
}

// mergeAssessments returns a copy of it with any re-triaged dimensions
// applied, for a guardrail pre-check against the just-reported values.
// Duplicated from the coordinator's applyAssessments rather than shared,
// keeping both packages free of a cross-import for a four-field merge.
func mergeAssessments(it backlog.Item, ua *agentrun.UpdatedAssessments) backlog.Item {
	if ua == nil {
		return it
	}
	if ua.Size != "" {
		it.Size = backlog.Dimension(ua.Size)
	}
	if ua.Risk != "" {
		it.Risk = backlog.Dimension(ua.Risk)
	}
	if ua.Impact != "" {
		it.Impact = backlog.Dimension(ua.Impact)
	}
	if ua.Complexity != "" {
		it.Complexity = backlog.Dimension(ua.Complexity)
	}
	return it
}

func (e *Executor) classifyPhaseResult(it backlog.Item, phaseName string, kind scheduler.ActionKind, result *agentrun.PhaseResult) Intent {
	switch {
	case result.Outcome == agentrun.OutcomeBlocked:
		return Intent{Kind: IntentPhaseBlocked, ItemID: it.ID, Phase: phaseName, Reason: result.Summary}

	case result.Outcome == agentrun.OutcomeSubphaseComplete, kind == scheduler.ActionRunPrePhase:
		// A finished pre-phase keeps the item in Scoping, whichever
		// completion value the agent reported.
		return Intent{Kind: IntentSubphaseComplete, ItemID: it.ID, Phase: phaseName, ResultSummary: result.Summary, FollowUps: result.FollowUps}

	default: // phase_complete on a main phase
		pipeline := findPipelineFor(e.Cfg, it)
		_, isDestructive := phaseIsDestructive(pipeline, phaseName)
		return Intent{
			Kind:               IntentPhaseSuccess,
			ItemID:             it.ID,
			Phase:              phaseName,
			ResultSummary:      result.Summary,
			FollowUps:          result.FollowUps,
			UpdatedAssessments: result.UpdatedAssessments,
			CommitRequired:     isDestructive,
		}
	}
}

func findPipelineFor(cfg *config.Config, it backlog.Item) backlog.PipelineConfig {
	return cfg.Pipelines[it.PipelineType]
}

func phaseIsDestructive(pipeline backlog.PipelineConfig, name string) (backlog.PhaseConfig, bool) {
	for _, p := range pipeline.Phases {
		if p.Name == name {
			return p, p.IsDestructive
		}
	}
	return backlog.PhaseConfig{}, false
}
