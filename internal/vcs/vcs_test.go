package vcs

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// newTestRepo initializes a git repository with one commit and returns a
// Repo handle on it. Grounded on the pack's git-fixture idiom: init, set
// identity, commit once so later git operations have a tip to target.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	mustRunGit(t, dir, "init", "-b", "main")
	mustRunGit(t, dir, "config", "user.email", "test@example.com")
	mustRunGit(t, dir, "config", "user.name", "Test")
	writeTestFile(t, dir, "README.md", "# test\n")
	mustRunGit(t, dir, "add", ".")
	mustRunGit(t, dir, "commit", "-m", "initial commit")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return repo
}

func mustRunGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %s", args, out)
	}
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_RejectsNonGitDir(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	if !errors.Is(err, ErrNotGitRepo) {
		t.Fatalf("expected ErrNotGitRepo outside a working tree, got %v", err)
	}
}

func TestStageAndCommit_CreatesCommit(t *testing.T) {
	repo := newTestRepo(t)
	writeTestFile(t, repo.Root, "item.md", "content\n")

	before, err := repo.HeadSHA()
	if err != nil {
		t.Fatalf("HeadSHA: %v", err)
	}

	sha, err := repo.StageAndCommit([]string{"item.md"}, "phase: prd complete")
	if err != nil {
		t.Fatalf("StageAndCommit: %v", err)
	}
	if sha == before {
		t.Fatal("expected a new commit SHA")
	}

	head, err := repo.HeadSHA()
	if err != nil {
		t.Fatalf("HeadSHA: %v", err)
	}
	if head != sha {
		t.Fatalf("expected HEAD to match the returned SHA, got head=%s sha=%s", head, sha)
	}
}

func TestStageAndCommit_EmptyPathsIsError(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.StageAndCommit(nil, "nothing to stage")
	if !errors.Is(err, ErrNothingToCommit) {
		t.Fatalf("expected ErrNothingToCommit, got %v", err)
	}
}

func TestIsAncestor_TrueForHead(t *testing.T) {
	repo := newTestRepo(t)
	head, err := repo.HeadSHA()
	if err != nil {
		t.Fatalf("HeadSHA: %v", err)
	}

	ok, err := repo.IsAncestor(head)
	if err != nil {
		t.Fatalf("IsAncestor: %v", err)
	}
	if !ok {
		t.Fatal("expected HEAD to be an ancestor of itself")
	}
}

func TestIsAncestor_FalseAfterNewCommitOnAnotherBranch(t *testing.T) {
	repo := newTestRepo(t)
	base, err := repo.HeadSHA()
	if err != nil {
		t.Fatalf("HeadSHA: %v", err)
	}

	mustRunGit(t, repo.Root, "checkout", "-b", "side")
	writeTestFile(t, repo.Root, "side.md", "side work\n")
	mustRunGit(t, repo.Root, "add", ".")
	mustRunGit(t, repo.Root, "commit", "-m", "side commit")
	sideSHA, err := repo.HeadSHA()
	if err != nil {
		t.Fatalf("HeadSHA: %v", err)
	}

	mustRunGit(t, repo.Root, "checkout", "main")

	ok, err := repo.IsAncestor(sideSHA)
	if err != nil {
		t.Fatalf("IsAncestor: %v", err)
	}
	if ok {
		t.Fatal("expected the side-branch commit to not be reachable from main")
	}

	ok, err = repo.IsAncestor(base)
	if err != nil {
		t.Fatalf("IsAncestor: %v", err)
	}
	if !ok {
		t.Fatal("expected the common base commit to remain an ancestor of main")
	}
}
