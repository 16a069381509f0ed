package agentrun

import "errors"

// Signal is an OS-agnostic signal number; platform files supply the
// concrete sigTerm/sigKill values and signalGroup implementation.
type Signal int

var errUnsupportedSignal = errors.New("agentrun: process-group signaling unsupported on this platform")

// Result classifies how a spawned phase invocation ended.
type Result string

const (
	ResultOk              Result = "ok"
	ResultTimeout         Result = "timeout"
	ResultNonZeroExit     Result = "non_zero_exit"
	ResultMissing         Result = "result_missing"
	ResultMalformed       Result = "result_malformed"
	ResultCancelled       Result = "cancelled"
)

// PhaseOutcome is the agent's structured JSON result classification.
type PhaseOutcome string

const (
	OutcomePhaseComplete    PhaseOutcome = "phase_complete"
	OutcomeSubphaseComplete PhaseOutcome = "subphase_complete"
	OutcomeBlocked          PhaseOutcome = "blocked"
)

// UpdatedAssessments carries optional re-triage dimensions the agent's
// phase result JSON may report.
type UpdatedAssessments struct {
	Size       string `json:"size,omitempty"`
	Risk       string `json:"risk,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Complexity string `json:"complexity,omitempty"`
}

// FollowUpResult mirrors one entry of a phase result's follow_ups array.
type FollowUpResult struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Size         string   `json:"size,omitempty"`
	Risk         string   `json:"risk,omitempty"`
	Impact       string   `json:"impact,omitempty"`
	PipelineType string   `json:"pipeline_type,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// PhaseResult is the parsed agent result-file JSON document.
type PhaseResult struct {
	ItemID             string              `json:"item_id"`
	Phase              string              `json:"phase"`
	Outcome            PhaseOutcome        `json:"result"`
	Summary            string              `json:"summary"`
	Context            string              `json:"context,omitempty"`
	UpdatedAssessments *UpdatedAssessments `json:"updated_assessments,omitempty"`
	FollowUps          []FollowUpResult    `json:"follow_ups,omitempty"`
}

// AgentOutcome is the return value of Run: exactly one of Result plus,
// when Result is ResultOk, the parsed PhaseResult.
type AgentOutcome struct {
	Result     Result
	Phase      *PhaseResult
	ExitCode   int
	Detail     string
}
