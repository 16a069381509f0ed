package config

import (
	"fmt"

	"github.com/phase-golem/golem/internal/backlog"
)

// GuardrailViolations returns a human-readable reason for each triage
// dimension of it that exceeds cfg's configured maxima. An empty slice
// means the item passes.
func GuardrailViolations(it backlog.Item, cfg *Config) []string {
	var reasons []string
	check := func(name string, value, max backlog.Dimension) {
		if value.Exceeds(max) {
			reasons = append(reasons, fmt.Sprintf("%s=%s > max_%s=%s", name, value, name, max))
		}
	}
	check("size", it.Size, cfg.Guardrails.MaxSize)
	check("risk", it.Risk, cfg.Guardrails.MaxRisk)
	check("complexity", it.Complexity, cfg.Guardrails.MaxComplexity)
	return reasons
}
