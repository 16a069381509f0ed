package backlog

import (
	"fmt"

	"github.com/phase-golem/golem/internal/golemerr"
)

// Validate checks the backlog's structural invariants (unique ids,
// status-consistent fields, valid dependency references) and returns
// every violation found (not just the first), wrapped under
// golemerr.ErrBacklog. A nil slice means the backlog is valid.
func Validate(b *BacklogFile) []error {
	var errs []error

	seen := make(map[string]bool, len(b.Items))
	for _, it := range b.Items {
		if seen[it.ID] {
			errs = append(errs, golemerr.BacklogErrorf("duplicate item id %q", it.ID))
			continue
		}
		seen[it.ID] = true
	}

	for _, it := range b.Items {
		for _, dep := range it.Dependencies {
			if !seen[dep] {
				errs = append(errs, golemerr.BacklogErrorf("item %s depends on unknown id %q", it.ID, dep))
			}
		}

		if it.Status == StatusBlocked {
			if it.BlockedReason == "" || it.BlockedFromStatus == nil {
				errs = append(errs, golemerr.BacklogErrorf("item %s is Blocked without blocked_reason and blocked_from_status", it.ID))
			} else {
				switch *it.BlockedFromStatus {
				case StatusScoping, StatusInProgress, StatusReady:
				default:
					errs = append(errs, golemerr.BacklogErrorf("item %s has invalid blocked_from_status %q", it.ID, *it.BlockedFromStatus))
				}
			}
		}

		wantPhaseNull := it.Status == StatusNew || it.Status == StatusReady || it.Status == StatusDone
		if wantPhaseNull && it.CurrentPhase != nil {
			errs = append(errs, golemerr.BacklogErrorf("item %s has status %s but a non-null current_phase", it.ID, it.Status))
		}
		if !wantPhaseNull && it.Status != StatusBlocked && it.CurrentPhase == nil {
			errs = append(errs, golemerr.BacklogErrorf("item %s has status %s but a null current_phase", it.ID, it.Status))
		}

		if it.Status == StatusScoping || it.Status == StatusReady || it.Status == StatusInProgress || it.Status == StatusDone {
			if it.Size == "" || it.Risk == "" || it.Impact == "" {
				errs = append(errs, golemerr.BacklogErrorf("item %s in status %s is missing a triage dimension (size/risk/impact)", it.ID, it.Status))
			}
		}
	}

	if cyc := findCycle(b); cyc != "" {
		errs = append(errs, golemerr.BacklogErrorf("dependency cycle detected: %s", cyc))
	}

	return errs
}

// findCycle runs a DFS over the dependency graph and returns a
// human-readable description of the first cycle found, or "".
func findCycle(b *BacklogFile) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(b.Items))
	byID := make(map[string]Item, len(b.Items))
	for _, it := range b.Items {
		byID[it.ID] = it
	}

	var path []string
	var cycle string
	var visit func(id string)
	visit = func(id string) {
		if cycle != "" {
			return
		}
		color[id] = gray
		path = append(path, id)
		for _, dep := range byID[id].Dependencies {
			switch color[dep] {
			case gray:
				cycle = fmt.Sprintf("%v -> %s", path, dep)
				return
			case white:
				visit(dep)
				if cycle != "" {
					return
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
	}

	for _, it := range b.Items {
		if color[it.ID] == white {
			visit(it.ID)
			if cycle != "" {
				return cycle
			}
		}
	}
	return ""
}
