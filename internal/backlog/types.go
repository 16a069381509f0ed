// Package backlog defines the persisted work-item data model: the
// BacklogFile root, its Items, and the lifecycle state machine that
// governs valid transitions between them.
package backlog

import "time"

// Status is an Item's lifecycle state.
type Status string

const (
	StatusNew        Status = "New"
	StatusScoping    Status = "Scoping"
	StatusReady      Status = "Ready"
	StatusInProgress Status = "InProgress"
	StatusDone       Status = "Done"
	StatusBlocked    Status = "Blocked"
)

// Dimension is a triage-assigned sizing enum. The lattice is
// low/small < medium < high/large, used by guardrail comparisons.
type Dimension string

const (
	DimLow    Dimension = "low"
	DimSmall  Dimension = "small"
	DimMedium Dimension = "medium"
	DimHigh   Dimension = "high"
	DimLarge  Dimension = "large"
)

// rank returns the lattice position of a dimension, normalizing the
// low/small and high/large synonyms to the same rank.
func (d Dimension) rank() int {
	switch d {
	case DimLow, DimSmall:
		return 0
	case DimMedium:
		return 1
	case DimHigh, DimLarge:
		return 2
	default:
		return -1
	}
}

// Exceeds reports whether d is strictly greater than max on the lattice.
// An empty max means no ceiling is configured.
func (d Dimension) Exceeds(max Dimension) bool {
	if max == "" {
		return false
	}
	return d.rank() > max.rank()
}

// StalenessPolicy controls behavior when a phase's recorded commit is
// unreachable from the branch tip.
type StalenessPolicy string

const (
	StalenessIgnore StalenessPolicy = "ignore"
	StalenessWarn   StalenessPolicy = "warn"
	StalenessBlock  StalenessPolicy = "block"
)

// StructuredDescription holds the five opaque text fields rendered into
// phase prompts. The core never inspects their content.
type StructuredDescription struct {
	Context        string `yaml:"context,omitempty" json:"context,omitempty"`
	Problem        string `yaml:"problem,omitempty" json:"problem,omitempty"`
	Solution       string `yaml:"solution,omitempty" json:"solution,omitempty"`
	Impact         string `yaml:"impact,omitempty" json:"impact,omitempty"`
	SizingRationale string `yaml:"sizing_rationale,omitempty" json:"sizing_rationale,omitempty"`
}

// FollowUp is a new item proposed by a running phase, ingested by the
// coordinator into the backlog as a fresh Item with status New.
type FollowUp struct {
	Title        string    `yaml:"title" json:"title"`
	Description  string    `yaml:"description,omitempty" json:"description,omitempty"`
	Size         Dimension `yaml:"size,omitempty" json:"size,omitempty"`
	Risk         Dimension `yaml:"risk,omitempty" json:"risk,omitempty"`
	Impact       Dimension `yaml:"impact,omitempty" json:"impact,omitempty"`
	PipelineType string    `yaml:"pipeline_type,omitempty" json:"pipeline_type,omitempty"`
	Dependencies []string  `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// Item is the unit of work walked through a pipeline's phases.
type Item struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Description *StructuredDescription `yaml:"description,omitempty" json:"description,omitempty"`
	Status      Status  `yaml:"status" json:"status"`

	PipelineType string  `yaml:"pipeline_type" json:"pipeline_type"`
	CurrentPhase *string `yaml:"current_phase,omitempty" json:"current_phase,omitempty"`

	LastCommitSHA *string `yaml:"last_commit_sha,omitempty" json:"last_commit_sha,omitempty"`

	Size       Dimension `yaml:"size,omitempty" json:"size,omitempty"`
	Risk       Dimension `yaml:"risk,omitempty" json:"risk,omitempty"`
	Impact     Dimension `yaml:"impact,omitempty" json:"impact,omitempty"`
	Complexity Dimension `yaml:"complexity,omitempty" json:"complexity,omitempty"`

	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	BlockedReason     string  `yaml:"blocked_reason,omitempty" json:"blocked_reason,omitempty"`
	BlockedFromStatus *Status `yaml:"blocked_from_status,omitempty" json:"blocked_from_status,omitempty"`
	UnblockContext    string  `yaml:"unblock_context,omitempty" json:"unblock_context,omitempty"`

	RetryCount int `yaml:"retry_count" json:"retry_count"`

	// RemainingPrePhases and RemainingPhases track progress through a
	// pipeline's phase lists; consumed from the front as phases complete,
	// letting the scheduler check "phases remaining" and "pre-phases
	// exhausted" without re-deriving position from the pipeline config.
	RemainingPrePhases []string `yaml:"remaining_pre_phases,omitempty" json:"remaining_pre_phases,omitempty"`
	RemainingPhases    []string `yaml:"remaining_phases,omitempty" json:"remaining_phases,omitempty"`

	FollowUps []FollowUp `yaml:"follow_ups,omitempty" json:"follow_ups,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// PhaseConfig describes one phase of a pipeline.
type PhaseConfig struct {
	Name         string          `yaml:"name" json:"name"`
	Workflows    []string        `yaml:"workflows,omitempty" json:"workflows,omitempty"`
	IsDestructive bool           `yaml:"is_destructive" json:"is_destructive"`
	Staleness    StalenessPolicy `yaml:"staleness" json:"staleness"`
}

// PipelineConfig is one named phase sequence an Item can be walked through.
type PipelineConfig struct {
	PrePhases []PhaseConfig `yaml:"pre_phases,omitempty" json:"pre_phases,omitempty"`
	Phases    []PhaseConfig `yaml:"phases" json:"phases"`
}

// BacklogFile is the persisted root document.
type BacklogFile struct {
	SchemaVersion int    `yaml:"schema_version" json:"schema_version"`
	Items         []Item `yaml:"items" json:"items"`
	NextItemID    int    `yaml:"next_item_id" json:"next_item_id"`
}

// CurrentSchemaVersion is written by NewBacklogFile and filled in by Load
// when a file has no schema_version; Load does not reject other versions.
const CurrentSchemaVersion = 1

// NewBacklogFile returns an empty, schema-stamped backlog.
func NewBacklogFile() *BacklogFile {
	return &BacklogFile{SchemaVersion: CurrentSchemaVersion, NextItemID: 1}
}

// FindItem returns a pointer to the item with the given id, or nil.
func (b *BacklogFile) FindItem(id string) *Item {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return &b.Items[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the backlog, the snapshot handed to
// scheduler/executor callers so they never see a mutation mid-round.
func (b *BacklogFile) Clone() *BacklogFile {
	out := &BacklogFile{SchemaVersion: b.SchemaVersion, NextItemID: b.NextItemID}
	out.Items = make([]Item, len(b.Items))
	for i, it := range b.Items {
		out.Items[i] = it.clone()
	}
	return out
}

func (it Item) clone() Item {
	cp := it
	if it.Description != nil {
		d := *it.Description
		cp.Description = &d
	}
	if it.CurrentPhase != nil {
		p := *it.CurrentPhase
		cp.CurrentPhase = &p
	}
	if it.LastCommitSHA != nil {
		s := *it.LastCommitSHA
		cp.LastCommitSHA = &s
	}
	if it.BlockedFromStatus != nil {
		s := *it.BlockedFromStatus
		cp.BlockedFromStatus = &s
	}
	cp.Dependencies = append([]string(nil), it.Dependencies...)
	cp.RemainingPrePhases = append([]string(nil), it.RemainingPrePhases...)
	cp.RemainingPhases = append([]string(nil), it.RemainingPhases...)
	cp.FollowUps = append([]FollowUp(nil), it.FollowUps...)
	return cp
}

// PhasesRemaining returns the count of phases (pre + main) still left to
// run for an item, used by the scheduler's advance-furthest-first order.
func (it Item) PhasesRemaining() int {
	return len(it.RemainingPrePhases) + len(it.RemainingPhases)
}
