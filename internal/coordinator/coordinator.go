// Package coordinator implements the single-writer actor: the only
// component that mutates the in-memory backlog, serializing every
// mutation through a command mailbox so concurrent executor tasks never
// race on item state, and owning the commit discipline (destructive
// phases commit immediately; non-destructive phases batch until halt or
// the item's next destructive phase).
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/phase-golem/golem/internal/agentrun"
	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/executor"
	"github.com/phase-golem/golem/internal/golemerr"
	"github.com/phase-golem/golem/internal/inbox"
	"github.com/phase-golem/golem/internal/vcs"
	"github.com/phase-golem/golem/internal/worklog"
)

// Coordinator owns the one mutable BacklogFile copy. All access happens
// through the exported methods below, each of which enqueues a closure
// onto the mailbox channel that the single Run goroutine drains in
// arrival order — a channel of closures instead of a tagged command
// enum, since Go has no generic "reply channel per command type" without
// one.
type Coordinator struct {
	cfg     *config.Config
	repo    *vcs.Repo
	worklog *worklog.Writer

	mailbox chan func()

	state        *backlog.BacklogFile
	pendingBatch map[string][]string // itemID -> staged paths not yet committed
}

// New returns a Coordinator seeded with initial state.
func New(cfg *config.Config, repo *vcs.Repo, initial *backlog.BacklogFile) *Coordinator {
	return &Coordinator{
		cfg:          cfg,
		repo:         repo,
		worklog:      worklog.NewWriter(cfg.Project.WorklogDir),
		mailbox:      make(chan func()),
		state:        initial,
		pendingBatch: make(map[string][]string),
	}
}

// Run drains the mailbox until ctx is cancelled. Exactly one goroutine
// must call Run; every other access goes through the exported methods.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.mailbox:
			fn()
		}
	}
}

// submit enqueues fn and blocks until it has run, giving callers a
// synchronous call despite the asynchronous mailbox.
func (c *Coordinator) submit(fn func()) {
	ack := make(chan struct{})
	c.mailbox <- func() {
		fn()
		close(ack)
	}
	<-ack
}

// GetSnapshot replies with a deep copy of the current backlog, the
// immutable view scheduler.SelectActions and executor.Execute consume.
func (c *Coordinator) GetSnapshot() *backlog.BacklogFile {
	var snap *backlog.BacklogFile
	c.submit(func() {
		snap = c.state.Clone()
	})
	return snap
}

// changeDirFor returns the per-item phase-artifact directory agents
// write into.
func (c *Coordinator) changeDirFor(it *backlog.Item) string {
	return filepath.Join(c.cfg.Project.ChangesDir, fmt.Sprintf("%s_%s", it.ID, slugify(it.Title)))
}

// ApplyIntent translates an executor.Intent into concrete field
// mutations, applies the commit discipline, and persists the backlog.
func (c *Coordinator) ApplyIntent(intent executor.Intent) error {
	var err error
	c.submit(func() {
		err = c.applyIntentLocked(intent)
	})
	return err
}

func (c *Coordinator) applyIntentLocked(intent executor.Intent) error {
	it := c.state.FindItem(intent.ItemID)
	if it == nil {
		return golemerr.BacklogErrorf("apply intent: item %s not found", intent.ItemID)
	}
	now := time.Now()

	switch intent.Kind {
	case executor.IntentPhaseSuccess:
		applyAssessments(it, intent.UpdatedAssessments)
		it.CompletePhase(now)
		c.stagePath(it.ID, c.changeDirFor(it))
		if intent.CommitRequired {
			if err := c.flushItemLocked(it, fmt.Sprintf("%s: complete %s", it.ID, intent.Phase)); err != nil {
				return err
			}
		}
		c.ingestFollowUpsLocked(intent.FollowUps)
		c.logLocked(it, intent.Phase, "phase_complete", intent.ResultSummary, now)

	case executor.IntentSubphaseComplete:
		applyAssessments(it, intent.UpdatedAssessments)
		it.CompletePrePhase(now)
		c.stagePath(it.ID, c.changeDirFor(it))
		c.ingestFollowUpsLocked(intent.FollowUps)
		c.logLocked(it, intent.Phase, "subphase_complete", intent.ResultSummary, now)

	case executor.IntentPhaseFailed:
		it.RetryCount++
		c.prepareForBlockLocked(it, intent.UpdatedAssessments, now)
		it.Block(fmt.Sprintf("phase %s failed: %s", intent.Phase, intent.Reason), now)
		c.logLocked(it, intent.Phase, "phase_failed", intent.Reason, now)

	case executor.IntentPhaseBlocked:
		c.prepareForBlockLocked(it, intent.UpdatedAssessments, now)
		it.Block(fmt.Sprintf("phase %s: %s", intent.Phase, intent.Reason), now)
		c.logLocked(it, intent.Phase, "blocked", intent.Reason, now)

	case executor.IntentGuardrailExceeded:
		reason := "guardrail exceeded"
		if len(intent.GuardrailReasons) > 0 {
			reason = intent.GuardrailReasons[0]
		}
		c.prepareForBlockLocked(it, intent.UpdatedAssessments, now)
		it.Block(reason, now)
		c.logLocked(it, intent.Phase, "guardrail_exceeded", reason, now)

	case executor.IntentStale:
		if intent.StaleAction == executor.StaleBlocked {
			it.Block(intent.Reason, now)
		}
		c.logLocked(it, intent.Phase, "stale_"+string(intent.StaleAction), intent.Reason, now)

	case executor.IntentTriaged:
		applyAssessments(it, intent.UpdatedAssessments)
		pipeline := c.cfg.Pipelines[it.PipelineType]
		if prePhases := phaseNames(pipeline.PrePhases); len(prePhases) > 0 {
			it.StartTriage(prePhases, now)
		} else {
			it.Status = backlog.StatusReady
			it.UpdatedAt = now
		}
		c.stagePath(it.ID, c.changeDirFor(it))
		c.ingestFollowUpsLocked(intent.FollowUps)
		c.logLocked(it, intent.Phase, "triaged", intent.ResultSummary, now)

	case executor.IntentReadied:
		it.Status = backlog.StatusReady
		it.UpdatedAt = now
		c.logLocked(it, "ready", "readied", "", now)

	case executor.IntentPromoted:
		pipeline := c.cfg.Pipelines[it.PipelineType]
		it.Promote(phaseNames(pipeline.Phases), now)
		c.logLocked(it, "promote", "promoted", "", now)
	}

	if violations := backlog.Validate(c.state); len(violations) > 0 {
		return golemerr.BacklogErrorf("post-intent invariant violation: %v", violations)
	}
	return c.saveLocked()
}

// applyAssessments copies any re-triaged dimensions from a phase result
// onto the item. A package-level function rather than a backlog.Item
// method so that package stays free of the agentrun wire-format import.
func applyAssessments(it *backlog.Item, ua *agentrun.UpdatedAssessments) {
	if ua == nil {
		return
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
}

// prepareForBlockLocked moves a still-New item into Scoping before Block
// records blocked_from_status, since a triage-phase agent can report
// failure or a blocked outcome before the item has ever left New, and
// blocked_from_status must never be New.
func (c *Coordinator) prepareForBlockLocked(it *backlog.Item, ua *agentrun.UpdatedAssessments, now time.Time) {
	if it.Status != backlog.StatusNew {
		return
	}
	applyAssessments(it, ua)
	it.Status = backlog.StatusScoping
	it.UpdatedAt = now
}

// flushItemLocked commits every path staged for itemID since the last
// commit, then clears the batch and records the new last_commit_sha.
func (c *Coordinator) flushItemLocked(it *backlog.Item, message string) error {
	paths := c.pendingBatch[it.ID]
	if c.repo == nil || len(paths) == 0 {
		delete(c.pendingBatch, it.ID)
		return nil
	}
	sha, err := c.repo.StageAndCommit(paths, message)
	if err != nil {
		if err == vcs.ErrNothingToCommit {
			delete(c.pendingBatch, it.ID)
			return nil
		}
		return golemerr.IOErrorf("commit for %s: %w", it.ID, err)
	}
	it.LastCommitSHA = &sha
	delete(c.pendingBatch, it.ID)
	return nil
}

// BatchCommit flushes every item's staged batch, used at halt so
// non-destructive work in flight is never left uncommitted.
func (c *Coordinator) BatchCommit() error {
	var err error
	c.submit(func() {
		for id := range c.pendingBatch {
			it := c.state.FindItem(id)
			if it == nil {
				continue
			}
			if flushErr := c.flushItemLocked(it, fmt.Sprintf("%s: batch commit", id)); flushErr != nil {
				err = flushErr
				return
			}
		}
		err = c.saveLocked()
	})
	return err
}

// ingestFollowUpsLocked appends follow-up results as fresh New items.
func (c *Coordinator) ingestFollowUpsLocked(followUps []agentrun.FollowUpResult) {
	now := time.Now()
	for _, fu := range followUps {
		id := fmt.Sprintf("%s%d", c.cfg.Project.Prefix, c.state.NextItemID)
		c.state.NextItemID++
		c.state.Items = append(c.state.Items, backlog.Item{
			ID:           id,
			Title:        fu.Title,
			Status:       backlog.StatusNew,
			PipelineType: fu.PipelineType,
			Size:         backlog.Dimension(fu.Size),
			Risk:         backlog.Dimension(fu.Risk),
			Impact:       backlog.Dimension(fu.Impact),
			Dependencies: fu.Dependencies,
			Description:  &backlog.StructuredDescription{Context: fu.Description},
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
}

// IngestInbox reads the drop-in inbox file, appends its follow-ups as
// new items, and deletes the file only once ingestion succeeds — a
// crash between save and delete just re-ingests the same file next round.
func (c *Coordinator) IngestInbox(path string) error {
	items, err := inbox.Read(path)
	if err != nil {
		return golemerr.IOErrorf("read inbox: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	var saveErr error
	c.submit(func() {
		c.ingestFollowUpsLocked(toFollowUpResults(items))
		saveErr = c.saveLocked()
	})
	if saveErr != nil {
		return saveErr
	}
	return inbox.Delete(path)
}

// phaseNames extracts the ordered phase-name list StartTriage/Promote
// load onto an item from its pipeline's pre-phase or main-phase config.
func phaseNames(phases []backlog.PhaseConfig) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	return names
}

func toFollowUpResults(items []backlog.FollowUp) []agentrun.FollowUpResult {
	out := make([]agentrun.FollowUpResult, len(items))
	for i, fu := range items {
		out[i] = agentrun.FollowUpResult{
			Title: fu.Title, Description: fu.Description, Size: string(fu.Size),
			Risk: string(fu.Risk), Impact: string(fu.Impact), PipelineType: fu.PipelineType,
			Dependencies: fu.Dependencies,
		}
	}
	return out
}

// ArchiveItem records a Done item's completion to the append-only
// worklog. The item stays in the backlog with its Done status — this
// is a durable record of completion, not a removal.
func (c *Coordinator) ArchiveItem(id string) error {
	var err error
	c.submit(func() {
		it := c.state.FindItem(id)
		if it == nil {
			err = golemerr.BacklogErrorf("archive: item %s not found", id)
			return
		}
		if it.Status != backlog.StatusDone {
			err = golemerr.BacklogErrorf("archive: item %s is not Done", id)
			return
		}
		err = c.worklog.Append(worklog.Entry{
			When:    time.Now(),
			ItemID:  it.ID,
			Phase:   "archive",
			Outcome: "archived",
			Summary: it.Title,
		})
	})
	return err
}

// SaveBacklog forces an out-of-band persist of the coordinator's state.
// The add/unblock/triage subcommands do not go through it: they call
// backlog.Save on their own loaded copy.
func (c *Coordinator) SaveBacklog() error {
	var err error
	c.submit(func() {
		err = c.saveLocked()
	})
	return err
}

// WriteWorklog records an entry directly, for CLI-driven mutations that
// bypass ApplyIntent but still belong in the human-readable trail.
func (c *Coordinator) WriteWorklog(e worklog.Entry) error {
	var err error
	c.submit(func() {
		err = c.worklog.Append(e)
	})
	return err
}

func (c *Coordinator) logLocked(it *backlog.Item, phase, outcome, summary string, when time.Time) {
	_ = c.worklog.Append(worklog.Entry{
		When: when, ItemID: it.ID, Title: it.Title, Phase: phase, Outcome: outcome, Summary: summary,
	})
}

func (c *Coordinator) stagePath(itemID, path string) {
	c.pendingBatch[itemID] = append(c.pendingBatch[itemID], path)
}

func (c *Coordinator) saveLocked() error {
	return backlog.Save(c.cfg.Project.BacklogPath, c.state)
}

func slugify(title string) string {
	out := make([]rune, 0, len(title))
	lastDash := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			lastDash = false
		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	s := string(out)
	for len(s) > 0 && s[len(s)-1] == '-' {
		s = s[:len(s)-1]
	}
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		return "item"
	}
	return s
}
