package backlog

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phase-golem/golem/internal/fsx"
	"github.com/phase-golem/golem/internal/golemerr"
)

// Load reads and parses a BacklogFile from path. A missing file is not an
// error: it returns a freshly minted empty backlog so `golem init` style
// flows can create the file on first save.
func Load(path string) (*BacklogFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewBacklogFile(), nil
	}
	if err != nil {
		return nil, golemerr.IOErrorf("read backlog %s: %w", path, err)
	}

	var b BacklogFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, golemerr.ConfigErrorf("parse backlog %s: %w", path, err)
	}
	if b.SchemaVersion == 0 {
		b.SchemaVersion = CurrentSchemaVersion
	}
	return &b, nil
}

// Save atomically persists b to path: write-to-temp, fsync, rename, so a
// crash mid-write never leaves a truncated backlog file on disk.
func Save(path string, b *BacklogFile) error {
	err := fsx.AtomicWrite(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(b)
	})
	if err != nil {
		return golemerr.IOErrorf("save backlog %s: %w", path, err)
	}
	return nil
}
