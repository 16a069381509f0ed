package vcs

import "errors"

// Sentinel errors for the vcs package. Sentinels let callers match with
// errors.Is instead of string-matching git's stderr.
var (
	// ErrNotGitRepo is returned when a command is run outside a git repository.
	ErrNotGitRepo = errors.New("not a git repository (phase-golem requires a git working tree)")

	// ErrCommitUnreachable names the condition where the staleness check's
	// recorded commit is not on the branch tip's history. IsAncestor does
	// not return it: it reports that case as (false, nil).
	ErrCommitUnreachable = errors.New("commit not reachable from branch tip")

	// ErrNothingToCommit is returned when StageAndCommit is asked to commit
	// an empty path set.
	ErrNothingToCommit = errors.New("no staged paths to commit")
)
