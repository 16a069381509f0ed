package executor

import (
	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/vcs"
)

// checkGuardrails returns the guardrail violation reasons for it, or nil
// if it passes.
func checkGuardrails(it backlog.Item, cfg *config.Config) []string {
	return config.GuardrailViolations(it, cfg)
}

// staleCheck evaluates the staleness gate before a destructive phase
// spawn: if last_commit_sha is set and unreachable from the branch tip,
// apply policy. repo is nil when there is no git repository to check
// against (e.g. unit tests), in which case the gate always passes.
func staleCheck(it backlog.Item, phase backlog.PhaseConfig, repo *vcs.Repo) (isStale bool, action StaleAction, err error) {
	if it.LastCommitSHA == nil || *it.LastCommitSHA == "" {
		return false, "", nil
	}
	if phase.Staleness == backlog.StalenessIgnore || repo == nil {
		return false, "", nil
	}

	reachable, checkErr := repo.IsAncestor(*it.LastCommitSHA)
	if checkErr != nil {
		return false, "", checkErr
	}
	if reachable {
		return false, "", nil
	}

	switch phase.Staleness {
	case backlog.StalenessWarn:
		return true, StaleWarned, nil
	case backlog.StalenessBlock:
		return true, StaleBlocked, nil
	default:
		return true, StaleWarned, nil
	}
}
