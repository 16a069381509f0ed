package agentrun

import "testing"

func TestResolveCommand_Precedence(t *testing.T) {
	env := map[string]string{}
	lookup := func(k string) string { return env[k] }

	cmd, _ := ResolveCommand(ToolchainOptions{EnvLookup: lookup})
	if cmd != DefaultCommand {
		t.Fatalf("expected default %q, got %q", DefaultCommand, cmd)
	}

	cmd, _ = ResolveCommand(ToolchainOptions{ConfigCommand: "from-config", EnvLookup: lookup})
	if cmd != "from-config" {
		t.Fatalf("expected config to override default, got %q", cmd)
	}

	env["PHASE_GOLEM_AGENT_COMMAND"] = "from-env"
	cmd, _ = ResolveCommand(ToolchainOptions{ConfigCommand: "from-config", EnvLookup: lookup})
	if cmd != "from-env" {
		t.Fatalf("expected env to override config, got %q", cmd)
	}

	cmd, _ = ResolveCommand(ToolchainOptions{ConfigCommand: "from-config", FlagCommand: "from-flag", FlagSet: true, EnvLookup: lookup})
	if cmd != "from-flag" {
		t.Fatalf("expected flag to override env and config, got %q", cmd)
	}
}

func TestMock_RepeatsLastOutcome(t *testing.T) {
	m := NewMock(AgentOutcome{Result: ResultOk}, AgentOutcome{Result: ResultTimeout})
	if out := m.Run(nil, "p1", "", 0); out.Result != ResultOk {
		t.Fatalf("expected first outcome ResultOk, got %v", out.Result)
	}
	if out := m.Run(nil, "p2", "", 0); out.Result != ResultTimeout {
		t.Fatalf("expected second outcome ResultTimeout, got %v", out.Result)
	}
	if out := m.Run(nil, "p3", "", 0); out.Result != ResultTimeout {
		t.Fatalf("expected outcomes to clamp to the last once exhausted, got %v", out.Result)
	}
	if m.Calls() != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", m.Calls())
	}
}
