// Package executor realizes one scheduler Action by evaluating
// guardrails and staleness, spawning the agent with retries, and
// classifying the outcome into an Intent the coordinator applies to the
// backlog.
package executor

import "github.com/phase-golem/golem/internal/agentrun"

// IntentKind names one of the outcome shapes the coordinator knows how
// to apply.
type IntentKind string

const (
	IntentPhaseSuccess      IntentKind = "phase_success"
	IntentSubphaseComplete  IntentKind = "subphase_complete"
	IntentPhaseFailed       IntentKind = "phase_failed"
	IntentPhaseBlocked      IntentKind = "phase_blocked"
	IntentGuardrailExceeded IntentKind = "guardrail_exceeded"
	IntentStale             IntentKind = "stale"

	// IntentTriaged, IntentReadied, and IntentPromoted are scheduler
	// bookkeeping transitions (New→Scoping, Scoping→Ready, Ready→InProgress).
	// Each carries its own kind rather than folding into IntentPhaseSuccess
	// because the coordinator runs a different state-machine method for
	// each one instead of advancing a phase that was never loaded.
	// IntentReadied and IntentPromoted are kept distinct so the WIP bound
	// applies only to the transition that actually creates an InProgress
	// item: folding them together would let a Scoping item skip Ready.
	IntentTriaged  IntentKind = "triaged"
	IntentReadied  IntentKind = "readied"
	IntentPromoted IntentKind = "promoted"
)

// StaleAction distinguishes a staleness gate's warn-and-proceed outcome
// from a hard block.
type StaleAction string

const (
	StaleWarned StaleAction = "warned"
	StaleBlocked StaleAction = "blocked"
)

// Intent is the executor's output: exactly one kind is populated per call.
type Intent struct {
	Kind IntentKind

	ItemID string
	Phase  string

	ResultSummary      string
	FollowUps          []agentrun.FollowUpResult
	UpdatedAssessments *agentrun.UpdatedAssessments
	CommitRequired     bool

	Reason       string
	GuardrailReasons []string
	StaleAction  StaleAction
}
