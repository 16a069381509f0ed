package agentrun

import (
	"os"
	"strings"
)

// DefaultCommand is used when config, env, and flag all leave the agent
// command unset.
const DefaultCommand = "claude"

// ToolchainOptions resolves which CLI binary and arguments to spawn per
// phase, with precedence flag > env > config > default.
type ToolchainOptions struct {
	ConfigCommand string
	ConfigArgs    []string
	FlagCommand   string
	FlagSet       bool
	EnvLookup     func(string) string
}

// ResolveCommand returns the effective (command, args) pair.
func ResolveCommand(opts ToolchainOptions) (string, []string) {
	lookup := opts.EnvLookup
	if lookup == nil {
		lookup = os.Getenv
	}

	command := DefaultCommand
	args := opts.ConfigArgs

	if trimmed := strings.TrimSpace(opts.ConfigCommand); trimmed != "" {
		command = trimmed
	}
	if env := strings.TrimSpace(lookup("PHASE_GOLEM_AGENT_COMMAND")); env != "" {
		command = env
	}
	if opts.FlagSet {
		if trimmed := strings.TrimSpace(opts.FlagCommand); trimmed != "" {
			command = trimmed
		}
	}

	return command, args
}
