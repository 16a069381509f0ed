// Package worklog implements the append-only human-readable trail: one
// markdown block per phase transition under _worklog/YYYY-MM.md.
package worklog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phase-golem/golem/internal/fsx"
)

// Entry is one phase-transition record.
type Entry struct {
	When    time.Time
	ItemID  string
	Title   string
	Phase   string
	Outcome string
	Summary string
}

// Writer appends Entry blocks to the monthly worklog file under dir.
type Writer struct {
	Dir string
}

// NewWriter returns a Writer rooted at dir (e.g. "_worklog").
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// pathFor returns the monthly file path for t.
func (w *Writer) pathFor(t time.Time) string {
	return filepath.Join(w.Dir, t.Format("2006-01")+".md")
}

// Append writes one entry block: datetime, id, title, phase, outcome,
// summary, and a separator line, in that order, appended to the current
// month's file.
func (w *Writer) Append(e Entry) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", e.When.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- id: %s\n", e.ItemID)
	fmt.Fprintf(&sb, "- title: %s\n", e.Title)
	fmt.Fprintf(&sb, "- phase: %s\n", e.Phase)
	fmt.Fprintf(&sb, "- outcome: %s\n", e.Outcome)
	fmt.Fprintf(&sb, "- summary: %s\n", e.Summary)
	sb.WriteString("\n---\n")

	return fsx.AppendLine(w.pathFor(e.When), []byte(sb.String()))
}

// History returns up to limit entries across the worklog's monthly
// files, most recent first, for CLI display.
func (w *Writer) History(limit int) ([]Entry, error) {
	files, err := filepath.Glob(filepath.Join(w.Dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	var out []Entry
	for _, path := range files {
		entries, err := parseFile(path)
		if err != nil {
			return nil, fmt.Errorf("parse worklog %s: %w", path, err)
		}
		for i := len(entries) - 1; i >= 0; i-- {
			out = append(out, entries[i])
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func parseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	var cur *Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "## "):
			if cur != nil {
				entries = append(entries, *cur)
			}
			when, _ := time.Parse(time.RFC3339, strings.TrimSpace(strings.TrimPrefix(line, "## ")))
			cur = &Entry{When: when}
		case cur == nil:
			continue
		case strings.HasPrefix(line, "- id: "):
			cur.ItemID = strings.TrimPrefix(line, "- id: ")
		case strings.HasPrefix(line, "- title: "):
			cur.Title = strings.TrimPrefix(line, "- title: ")
		case strings.HasPrefix(line, "- phase: "):
			cur.Phase = strings.TrimPrefix(line, "- phase: ")
		case strings.HasPrefix(line, "- outcome: "):
			cur.Outcome = strings.TrimPrefix(line, "- outcome: ")
		case strings.HasPrefix(line, "- summary: "):
			cur.Summary = strings.TrimPrefix(line, "- summary: ")
		}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries, scanner.Err()
}
