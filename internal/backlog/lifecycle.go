package backlog

import "time"

// StartTriage moves a New item into Scoping with its pre-phase list
// loaded from the pipeline, per the `triage` scheduler action.
func (it *Item) StartTriage(prePhases []string, now time.Time) {
	it.Status = StatusScoping
	it.RemainingPrePhases = append([]string(nil), prePhases...)
	phase := firstOrEmpty(prePhases)
	if phase != "" {
		it.CurrentPhase = &phase
	}
	it.UpdatedAt = now
}

// CompletePrePhase advances past the current pre-phase. When the
// pre-phase list is exhausted the item becomes eligible to move to Ready
// but stays in Scoping until the scheduler issues that transition.
func (it *Item) CompletePrePhase(now time.Time) {
	it.RemainingPrePhases = popFront(it.RemainingPrePhases)
	it.RetryCount = 0
	if len(it.RemainingPrePhases) == 0 {
		it.CurrentPhase = nil
	} else {
		phase := it.RemainingPrePhases[0]
		it.CurrentPhase = &phase
	}
	it.UpdatedAt = now
}

// Promote transitions a Ready item into InProgress with the first main
// phase loaded.
func (it *Item) Promote(phases []string, now time.Time) {
	it.Status = StatusInProgress
	it.RemainingPhases = append([]string(nil), phases...)
	phase := firstOrEmpty(phases)
	if phase != "" {
		it.CurrentPhase = &phase
	}
	it.UpdatedAt = now
}

// CompletePhase advances past the current main phase. When the last main
// phase completes the item becomes Done.
func (it *Item) CompletePhase(now time.Time) {
	it.RemainingPhases = popFront(it.RemainingPhases)
	it.RetryCount = 0
	if len(it.RemainingPhases) == 0 {
		it.Status = StatusDone
		it.CurrentPhase = nil
	} else {
		phase := it.RemainingPhases[0]
		it.CurrentPhase = &phase
	}
	it.UpdatedAt = now
}

// Block transitions the item into Blocked, recording the reason and the
// status it was blocked from so Unblock can restore it.
func (it *Item) Block(reason string, now time.Time) {
	from := it.Status
	it.BlockedFromStatus = &from
	it.BlockedReason = reason
	it.Status = StatusBlocked
	it.UpdatedAt = now
}

// Unblock restores the status the item was blocked from and resets
// retry_count to 0, giving it a clean slate rather than carrying a
// retry count accrued under the condition that just got cleared.
func (it *Item) Unblock(context string, now time.Time) {
	if it.BlockedFromStatus != nil {
		it.Status = *it.BlockedFromStatus
	}
	it.BlockedFromStatus = nil
	it.BlockedReason = ""
	it.UnblockContext = context
	it.RetryCount = 0
	it.UpdatedAt = now
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func popFront(s []string) []string {
	if len(s) == 0 {
		return s
	}
	return append([]string(nil), s[1:]...)
}
