// Package inbox parses the drop-in BACKLOG_INBOX.yaml file: a flock-
// guarded, one-shot parse of a FollowUp list. The coordinator's
// IngestInbox, not this package, owns delete-only-on-success semantics.
package inbox

import (
	"os"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/phase-golem/golem/internal/backlog"
)

// Items is the inbox file's top-level shape.
type Items struct {
	Items []backlog.FollowUp `yaml:"items"`
}

// Read parses path under a shared flock for concurrency-safe reads.
// Returns (nil, nil) if the file does not exist — nothing to ingest.
func Read(path string) ([]backlog.FollowUp, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH); err != nil {
		return nil, err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	var parsed Items
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Items, nil
}

// Delete removes the inbox file after successful ingestion. Absence is
// not an error.
func Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
