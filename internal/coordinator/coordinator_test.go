package coordinator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/phase-golem/golem/internal/agentrun"
	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/executor"
	"github.com/phase-golem/golem/internal/worklog"
)

func strPtr(s string) *string { return &s }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Project.BacklogPath = filepath.Join(dir, "BACKLOG.yaml")
	cfg.Project.WorklogDir = filepath.Join(dir, "_worklog")
	cfg.Project.ChangesDir = filepath.Join(dir, "changes")
	return cfg
}

func newRunningCoordinator(t *testing.T, cfg *config.Config, initial *backlog.BacklogFile) *Coordinator {
	t.Helper()
	c := New(cfg, nil, initial)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(cancel)
	return c
}

func TestApplyIntent_PhaseSuccessAdvancesAndPersists(t *testing.T) {
	cfg := testConfig(t)
	phase := "build"
	b := &backlog.BacklogFile{
		NextItemID: 2,
		Items: []backlog.Item{
			{ID: "W1", Title: "Thing", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: &phase, RemainingPhases: []string{"build", "review"}, Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
		},
	}
	c := newRunningCoordinator(t, cfg, b)

	err := c.ApplyIntent(executor.Intent{
		Kind: executor.IntentPhaseSuccess, ItemID: "W1", Phase: "build", ResultSummary: "built it",
	})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	snap := c.GetSnapshot()
	it := snap.FindItem("W1")
	if it == nil {
		t.Fatal("expected item W1 to still exist")
	}
	if it.Status != backlog.StatusInProgress {
		t.Fatalf("expected item to remain InProgress with a phase left, got %v", it.Status)
	}
	if it.CurrentPhase == nil || *it.CurrentPhase != "review" {
		t.Fatalf("expected current phase to advance to review, got %+v", it.CurrentPhase)
	}

	onDisk, err := backlog.Load(cfg.Project.BacklogPath)
	if err != nil {
		t.Fatalf("Load persisted backlog: %v", err)
	}
	if onDisk.FindItem("W1").CurrentPhase == nil || *onDisk.FindItem("W1").CurrentPhase != "review" {
		t.Fatal("expected the persisted backlog to reflect the phase advance")
	}
}

func TestApplyIntent_LastPhaseCompletesItem(t *testing.T) {
	cfg := testConfig(t)
	phase := "review"
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: &phase, RemainingPhases: []string{"review"}, Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
	}}
	c := newRunningCoordinator(t, cfg, b)

	if err := c.ApplyIntent(executor.Intent{Kind: executor.IntentPhaseSuccess, ItemID: "W1", Phase: "review"}); err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusDone {
		t.Fatalf("expected item to become Done, got %v", it.Status)
	}
}

func TestApplyIntent_PhaseFailedBlocksAndIncrementsRetry(t *testing.T) {
	cfg := testConfig(t)
	phase := "build"
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: &phase, RemainingPhases: []string{"build"}, Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
	}}
	c := newRunningCoordinator(t, cfg, b)

	if err := c.ApplyIntent(executor.Intent{Kind: executor.IntentPhaseFailed, ItemID: "W1", Phase: "build", Reason: "exit 1"}); err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusBlocked {
		t.Fatalf("expected phase failure to block the item, got %v", it.Status)
	}
	if it.RetryCount != 1 {
		t.Fatalf("expected retry_count to increment, got %d", it.RetryCount)
	}
	if it.BlockedFromStatus == nil || *it.BlockedFromStatus != backlog.StatusInProgress {
		t.Fatalf("expected blocked_from_status to record InProgress, got %+v", it.BlockedFromStatus)
	}
}

func TestApplyIntent_GuardrailExceededBlocksWithReason(t *testing.T) {
	cfg := testConfig(t)
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusScoping, PipelineType: "feature"},
	}}
	c := newRunningCoordinator(t, cfg, b)

	err := c.ApplyIntent(executor.Intent{
		Kind: executor.IntentGuardrailExceeded, ItemID: "W1", GuardrailReasons: []string{"size exceeds max_size"},
	})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusBlocked {
		t.Fatalf("expected item blocked, got %v", it.Status)
	}
	if it.BlockedReason != "size exceeds max_size" {
		t.Fatalf("expected blocked_reason to carry the guardrail detail, got %q", it.BlockedReason)
	}
}

func TestApplyIntent_UnknownItemIsError(t *testing.T) {
	cfg := testConfig(t)
	c := newRunningCoordinator(t, cfg, &backlog.BacklogFile{})

	if err := c.ApplyIntent(executor.Intent{Kind: executor.IntentPhaseSuccess, ItemID: "NOPE"}); err == nil {
		t.Fatal("expected an error applying an intent for an unknown item")
	}
}

func TestApplyIntent_FollowUpsMintNewItems(t *testing.T) {
	cfg := testConfig(t)
	phase := "prd"
	b := &backlog.BacklogFile{
		NextItemID: 5,
		Items: []backlog.Item{
			{ID: "W1", Title: "Thing", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: &phase, RemainingPhases: []string{"prd"}, Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
		},
	}
	c := newRunningCoordinator(t, cfg, b)

	err := c.ApplyIntent(executor.Intent{
		Kind: executor.IntentPhaseSuccess, ItemID: "W1", Phase: "prd",
		FollowUps: []agentrun.FollowUpResult{{Title: "Add a metric", PipelineType: "feature"}},
	})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	snap := c.GetSnapshot()
	if len(snap.Items) != 2 {
		t.Fatalf("expected a follow-up item to be minted, got %d items", len(snap.Items))
	}
	var found bool
	for _, it := range snap.Items {
		if it.ID == "WRK5" && it.Title == "Add a metric" && it.Status == backlog.StatusNew {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a new item WRK5 titled 'Add a metric', got %+v", snap.Items)
	}
	if snap.NextItemID != 6 {
		t.Fatalf("expected next_item_id to advance past the minted id, got %d", snap.NextItemID)
	}
}

func TestIngestInbox_MissingFileIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	c := newRunningCoordinator(t, cfg, &backlog.BacklogFile{})

	if err := c.IngestInbox(filepath.Join(t.TempDir(), "BACKLOG_INBOX.yaml")); err != nil {
		t.Fatalf("expected no error for a missing inbox file, got %v", err)
	}
}

func TestArchiveItem_RecordsWorklogEntryButKeepsItem(t *testing.T) {
	cfg := testConfig(t)
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Done thing", Status: backlog.StatusDone, PipelineType: "feature", Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
		{ID: "W2", Title: "In flight", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: strPtr("build"), RemainingPhases: []string{"build"}, Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
	}}
	c := newRunningCoordinator(t, cfg, b)

	if err := c.ArchiveItem("W1"); err != nil {
		t.Fatalf("ArchiveItem: %v", err)
	}
	snap := c.GetSnapshot()
	it := snap.FindItem("W1")
	if it == nil {
		t.Fatal("expected W1 to remain in the backlog after archiving")
	}
	if it.Status != backlog.StatusDone {
		t.Fatalf("expected W1 to stay Done, got %v", it.Status)
	}

	entries, err := worklog.NewWriter(cfg.Project.WorklogDir).History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var found bool
	for _, e := range entries {
		if e.ItemID == "W1" && e.Outcome == "archived" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an archived worklog entry for W1, got %+v", entries)
	}

	if err := c.ArchiveItem("W2"); err == nil {
		t.Fatal("expected archiving a non-Done item to fail")
	}
}

func TestBatchCommit_NilRepoClearsPendingBatch(t *testing.T) {
	cfg := testConfig(t)
	phase := "prd"
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusInProgress, PipelineType: "feature", CurrentPhase: &phase, RemainingPhases: []string{"prd", "build"}, Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
	}}
	c := newRunningCoordinator(t, cfg, b)

	if err := c.ApplyIntent(executor.Intent{Kind: executor.IntentPhaseSuccess, ItemID: "W1", Phase: "prd"}); err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}
	if err := c.BatchCommit(); err != nil {
		t.Fatalf("BatchCommit: %v", err)
	}
	if len(c.pendingBatch) != 0 {
		t.Fatalf("expected BatchCommit to clear pending batches even with a nil repo, got %v", c.pendingBatch)
	}
}

func TestApplyIntent_TriagedWithPrePhasesEntersScoping(t *testing.T) {
	cfg := testConfig(t)
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusNew, PipelineType: "feature"},
	}}
	c := newRunningCoordinator(t, cfg, b)

	ua := &agentrun.UpdatedAssessments{Size: "small", Risk: "low", Impact: "low"}
	err := c.ApplyIntent(executor.Intent{
		Kind: executor.IntentTriaged, ItemID: "W1", Phase: "triage",
		ResultSummary: "assessed", UpdatedAssessments: ua,
	})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusScoping {
		t.Fatalf("expected item to enter Scoping with pre-phases configured, got %v", it.Status)
	}
	if it.Size != backlog.DimSmall || it.Risk != backlog.DimLow || it.Impact != backlog.DimLow {
		t.Fatalf("expected assessed dimensions to be applied, got size=%v risk=%v impact=%v", it.Size, it.Risk, it.Impact)
	}
	if it.CurrentPhase == nil || *it.CurrentPhase != "research" {
		t.Fatalf("expected the feature pipeline's pre-phase to be loaded, got %+v", it.CurrentPhase)
	}
}

func TestApplyIntent_TriagedWithNoPrePhasesGoesStraightToReady(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipelines["bare"] = config.Default().Pipelines["feature"]
	barePipeline := cfg.Pipelines["bare"]
	barePipeline.PrePhases = nil
	cfg.Pipelines["bare"] = barePipeline

	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusNew, PipelineType: "bare"},
	}}
	c := newRunningCoordinator(t, cfg, b)

	ua := &agentrun.UpdatedAssessments{Size: "small", Risk: "low", Impact: "low"}
	err := c.ApplyIntent(executor.Intent{
		Kind: executor.IntentTriaged, ItemID: "W1", Phase: "triage", UpdatedAssessments: ua,
	})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusReady {
		t.Fatalf("expected item with no pre-phases to go straight to Ready, got %v", it.Status)
	}
	if it.CurrentPhase != nil {
		t.Fatalf("expected no current phase while Ready, got %+v", it.CurrentPhase)
	}
}

func TestApplyIntent_ReadiedMovesScopingToReadyWithoutLoadingAPhase(t *testing.T) {
	cfg := testConfig(t)
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusScoping, PipelineType: "feature", Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
	}}
	c := newRunningCoordinator(t, cfg, b)

	if err := c.ApplyIntent(executor.Intent{Kind: executor.IntentReadied, ItemID: "W1"}); err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusReady {
		t.Fatalf("expected item to enter Ready, got %v", it.Status)
	}
	if it.CurrentPhase != nil {
		t.Fatalf("expected Ready to not load a main phase, got %+v", it.CurrentPhase)
	}
}

func TestApplyIntent_PromotedEntersInProgressWithFirstPhase(t *testing.T) {
	cfg := testConfig(t)
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusReady, PipelineType: "feature", Size: backlog.DimSmall, Risk: backlog.DimLow, Impact: backlog.DimLow},
	}}
	c := newRunningCoordinator(t, cfg, b)

	if err := c.ApplyIntent(executor.Intent{Kind: executor.IntentPromoted, ItemID: "W1"}); err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusInProgress {
		t.Fatalf("expected item to enter InProgress, got %v", it.Status)
	}
	if it.CurrentPhase == nil || *it.CurrentPhase != "prd" {
		t.Fatalf("expected the first main phase to be loaded, got %+v", it.CurrentPhase)
	}
}

func TestApplyIntent_GuardrailExceededFromNewBlocksFromScoping(t *testing.T) {
	cfg := testConfig(t)
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusNew, PipelineType: "feature"},
	}}
	c := newRunningCoordinator(t, cfg, b)

	ua := &agentrun.UpdatedAssessments{Size: "large", Risk: "medium", Impact: "medium"}
	err := c.ApplyIntent(executor.Intent{
		Kind: executor.IntentGuardrailExceeded, ItemID: "W1", Phase: "triage",
		GuardrailReasons: []string{"size exceeds max_size"}, UpdatedAssessments: ua,
	})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusBlocked {
		t.Fatalf("expected item blocked, got %v", it.Status)
	}
	if it.BlockedFromStatus == nil || *it.BlockedFromStatus != backlog.StatusScoping {
		t.Fatalf("expected blocked_from_status to be Scoping (never New), got %+v", it.BlockedFromStatus)
	}
}

func TestApplyIntent_PhaseBlockedFromNewBlocksFromScoping(t *testing.T) {
	cfg := testConfig(t)
	b := &backlog.BacklogFile{Items: []backlog.Item{
		{ID: "W1", Title: "Thing", Status: backlog.StatusNew, PipelineType: "feature"},
	}}
	c := newRunningCoordinator(t, cfg, b)

	err := c.ApplyIntent(executor.Intent{
		Kind: executor.IntentPhaseBlocked, ItemID: "W1", Phase: "triage", Reason: "needs human input",
	})
	if err != nil {
		t.Fatalf("ApplyIntent: %v", err)
	}

	it := c.GetSnapshot().FindItem("W1")
	if it.Status != backlog.StatusBlocked {
		t.Fatalf("expected item blocked, got %v", it.Status)
	}
	if it.BlockedFromStatus == nil || *it.BlockedFromStatus != backlog.StatusScoping {
		t.Fatalf("expected blocked_from_status to be Scoping (never New), got %+v", it.BlockedFromStatus)
	}
}

func TestWriteWorklog_AppendsEntry(t *testing.T) {
	cfg := testConfig(t)
	c := newRunningCoordinator(t, cfg, &backlog.BacklogFile{})

	entry := worklog.Entry{When: time.Now(), ItemID: "W1", Phase: "unblock", Outcome: "operator_action", Summary: "operator context"}
	if err := c.WriteWorklog(entry); err != nil {
		t.Fatalf("WriteWorklog: %v", err)
	}
}
