package scheduler

import (
	"testing"
	"time"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Execution.MaxWIP = 2
	cfg.Execution.MaxConcurrent = 2
	return cfg
}

func TestSelectActions_NewItemTriages(t *testing.T) {
	now := time.Now()
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Status: backlog.StatusNew, PipelineType: "feature", UpdatedAt: now},
	}}
	dec := SelectActions(b, RunState{}, testConfig())
	if len(dec.Actions) != 1 || dec.Actions[0].Kind != ActionTriage {
		t.Fatalf("expected one triage action, got %+v", dec.Actions)
	}
}

func TestSelectActions_ReadyBoundedByMaxWIP(t *testing.T) {
	now := time.Now()
	phase := "build"
	items := []backlog.Item{
		{ID: "W1", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: &phase, UpdatedAt: now, RemainingPhases: []string{"build", "review"}},
		{ID: "W2", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: &phase, UpdatedAt: now, RemainingPhases: []string{"build", "review"}},
		{ID: "W3", Status: backlog.StatusReady, PipelineType: "feature", UpdatedAt: now},
	}
	b := &backlog.BacklogFile{Items: items}
	cfg := testConfig()
	cfg.Execution.MaxWIP = 2
	cfg.Execution.MaxConcurrent = 0 // no new InProgress dispatch this round

	dec := SelectActions(b, RunState{}, cfg)
	for _, a := range dec.Actions {
		if a.Kind == ActionPromote {
			t.Fatalf("expected W3 to stay Ready: wip already at max, got promote action %+v", a)
		}
	}
}

func TestSelectActions_DependencyGating(t *testing.T) {
	now := time.Now()
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Status: backlog.StatusReady, PipelineType: "feature", Dependencies: []string{"W2"}, UpdatedAt: now},
		{ID: "W2", Status: backlog.StatusNew, PipelineType: "feature", UpdatedAt: now},
	}}
	cfg := testConfig()
	dec := SelectActions(b, RunState{TargetID: "W1"}, cfg)
	for _, a := range dec.Actions {
		if a.ItemID == "W1" && a.Kind != ActionSkip {
			t.Fatalf("expected W1 gated by unmet dependency, got %+v", a)
		}
	}
}

func TestSelectActions_CircuitBreakerHalts(t *testing.T) {
	b := &backlog.BacklogFile{}
	dec := SelectActions(b, RunState{BreakerTripped: true}, testConfig())
	if dec.Halt != HaltCircuitBreaker {
		t.Fatalf("expected circuit breaker halt, got %v", dec.Halt)
	}
}

func TestSelectActions_ScopingWithExhaustedPrePhasesGoesReadyNotPromote(t *testing.T) {
	now := time.Now()
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Status: backlog.StatusScoping, PipelineType: "feature", UpdatedAt: now, Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
	}}
	cfg := testConfig()
	cfg.Execution.MaxWIP = 0 // WIP already at cap: a Promote here would wrongly bypass it

	dec := SelectActions(b, RunState{}, cfg)
	if len(dec.Actions) != 1 || dec.Actions[0].Kind != ActionReady {
		t.Fatalf("expected a single ready action for a Scoping item with no pre-phases left, got %+v", dec.Actions)
	}
}

func TestSelectActions_TargetFinished(t *testing.T) {
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Status: backlog.StatusDone, PipelineType: "feature"},
	}}
	dec := SelectActions(b, RunState{TargetID: "W1"}, testConfig())
	if dec.Halt != HaltTargetFinished {
		t.Fatalf("expected target-finished halt, got %v", dec.Halt)
	}
}

func TestSelectActions_GuardrailBlocksPromote(t *testing.T) {
	now := time.Now()
	it := backlog.Item{
		ID: "W1", Status: backlog.StatusScoping, PipelineType: "feature", UpdatedAt: now,
		Size: backlog.DimLarge, Risk: backlog.DimMedium, Impact: backlog.DimMedium,
	}
	b := &backlog.BacklogFile{Items: []backlog.Item{it}}
	cfg := testConfig()
	cfg.Guardrails.MaxSize = backlog.DimMedium

	dec := SelectActions(b, RunState{}, cfg)
	for _, a := range dec.Actions {
		if a.ItemID == "W1" && (a.Kind == ActionReady || a.Kind == ActionPromote) {
			t.Fatalf("expected oversized item to be denied promotion, got %+v", a)
		}
	}
}
