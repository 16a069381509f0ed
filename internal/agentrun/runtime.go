// Package agentrun spawns the external CLI agent in a new process group,
// pipes the prompt on stdin, enforces a timeout, honors a shutdown
// signal, and parses the JSON result file the agent writes back.
package agentrun

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Runtime spawns one external agent CLI per phase invocation.
type Runtime struct {
	Command  string
	Args     []string
	Registry *Registry
}

// New returns a Runtime backed by registry for child-process tracking.
func New(command string, args []string, registry *Registry) *Runtime {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Runtime{Command: command, Args: args, Registry: registry}
}

// Run spawns the agent, waits up to timeout (or until ctx is cancelled),
// and returns the classified outcome. resultPath is the deterministic
// per-(item,phase) file the agent is expected to write; any stale file
// there is removed before spawn so a retry never reads a prior attempt's
// result.
func (r *Runtime) Run(ctx context.Context, prompt, resultPath string, timeout time.Duration) AgentOutcome {
	_ = os.Remove(resultPath)

	invocationID := uuid.NewString()

	cmd := exec.Command(r.Command, r.Args...)
	cmd.Env = append(os.Environ(),
		"PHASE_GOLEM_RESULT_PATH="+resultPath,
		"PHASE_GOLEM_INVOCATION_ID="+invocationID,
	)
	cmd.Stdin = strings.NewReader(prompt)
	setProcGroup(cmd)

	if err := cmd.Start(); err != nil {
		return AgentOutcome{Result: ResultNonZeroExit, Detail: fmt.Sprintf("spawn failed: %v", err)}
	}

	pgid := cmd.Process.Pid
	r.Registry.insert(pgid)
	defer r.Registry.remove(pgid)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return r.classifyExit(err, resultPath)

	case <-timer.C:
		terminateGroup(pgid, defaultGrace)
		killDirectChild(cmd.Process)
		<-done // reap; the group and the direct child have been killed
		return AgentOutcome{Result: ResultTimeout, Detail: fmt.Sprintf("phase exceeded %s", timeout)}

	case <-ctx.Done():
		terminateGroup(pgid, defaultGrace)
		killDirectChild(cmd.Process)
		<-done
		return AgentOutcome{Result: ResultCancelled, Detail: ctx.Err().Error()}
	}
}

func (r *Runtime) classifyExit(waitErr error, resultPath string) AgentOutcome {
	if waitErr != nil {
		exitCode := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return AgentOutcome{Result: ResultNonZeroExit, ExitCode: exitCode, Detail: waitErr.Error()}
	}
	return r.readResult(resultPath)
}

// readResult reads and removes the result file on success, leaving it in
// place for diagnostics on any parse failure.
func (r *Runtime) readResult(resultPath string) AgentOutcome {
	data, err := os.ReadFile(resultPath)
	if os.IsNotExist(err) {
		return AgentOutcome{Result: ResultMissing, Detail: "result file not written"}
	}
	if err != nil {
		return AgentOutcome{Result: ResultMalformed, Detail: err.Error()}
	}

	var res PhaseResult
	if err := json.Unmarshal(data, &res); err != nil {
		return AgentOutcome{Result: ResultMalformed, Detail: err.Error()}
	}
	if res.ItemID == "" || res.Phase == "" || res.Summary == "" {
		return AgentOutcome{Result: ResultMalformed, Detail: "missing required field (item_id/phase/summary)"}
	}
	switch res.Outcome {
	case OutcomePhaseComplete, OutcomeSubphaseComplete, OutcomeBlocked:
	default:
		return AgentOutcome{Result: ResultMalformed, Detail: fmt.Sprintf("unknown result %q", res.Outcome)}
	}

	_ = os.Remove(resultPath)
	return AgentOutcome{Result: ResultOk, Phase: &res}
}
