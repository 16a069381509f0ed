package agentrun

import (
	"context"
	"time"
)

// Spawner is the capability Runtime implements: spawn a phase invocation
// and return its classified outcome. Defining it as an interface lets the
// executor depend on a fake in tests without touching a real subprocess.
type Spawner interface {
	Run(ctx context.Context, prompt, resultPath string, timeout time.Duration) AgentOutcome
}

var _ Spawner = (*Runtime)(nil)

// Mock is a test double that returns a scripted sequence of outcomes,
// one per call, repeating the last once exhausted.
type Mock struct {
	Outcomes []AgentOutcome
	calls    int
	Prompts  []string
}

// NewMock returns a Mock that yields outcomes in order.
func NewMock(outcomes ...AgentOutcome) *Mock {
	return &Mock{Outcomes: outcomes}
}

// Run records the prompt and returns the next scripted outcome.
func (m *Mock) Run(_ context.Context, prompt, _ string, _ time.Duration) AgentOutcome {
	m.Prompts = append(m.Prompts, prompt)
	if len(m.Outcomes) == 0 {
		return AgentOutcome{Result: ResultMissing}
	}
	idx := m.calls
	if idx >= len(m.Outcomes) {
		idx = len(m.Outcomes) - 1
	}
	m.calls++
	return m.Outcomes[idx]
}

// Calls reports how many times Run has been invoked.
func (m *Mock) Calls() int { return m.calls }

var _ Spawner = (*Mock)(nil)
