package config

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/golemerr"
)

var structValidator = validator.New()

// Validate runs struct-tag validation plus two config-shape checks:
// destructive phases may not appear in pre_phases, and staleness=block
// combined with max_wip>1 is a config error (a blocked destructive phase
// on one item must not let another item's destructive phase race it).
func Validate(cfg *Config) []error {
	var errs []error

	if err := structValidator.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs = append(errs, golemerr.ConfigErrorf("%s: %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, golemerr.ConfigErrorf("validate config: %w", err))
		}
	}

	for name, pipeline := range cfg.Pipelines {
		for _, phase := range pipeline.PrePhases {
			if phase.IsDestructive {
				errs = append(errs, golemerr.ConfigErrorf("pipeline %q: pre-phase %q may not be destructive", name, phase.Name))
			}
		}
		for _, phase := range pipeline.Phases {
			if phase.IsDestructive && phase.Staleness == backlog.StalenessBlock && cfg.Execution.MaxWIP > 1 {
				errs = append(errs, golemerr.ConfigErrorf("pipeline %q phase %q: staleness=block with max_wip=%d may deadlock concurrent destructive runs", name, phase.Name, cfg.Execution.MaxWIP))
			}
		}
	}

	return errs
}

// ValidateWorkflowFiles checks that every phase's workflows[] glob
// resolves to at least one file under root, a preflight check run before
// the run loop starts spawning agents against a misconfigured pipeline.
func ValidateWorkflowFiles(cfg *Config, root string) []error {
	var errs []error
	rootFS := os.DirFS(root)

	check := func(pipelineName string, phases []backlog.PhaseConfig) {
		for _, phase := range phases {
			for _, pattern := range phase.Workflows {
				matches, err := doublestar.Glob(rootFS, pattern)
				if err != nil {
					errs = append(errs, golemerr.ConfigErrorf("pipeline %q phase %q: invalid workflow glob %q: %w", pipelineName, phase.Name, pattern, err))
					continue
				}
				if len(matches) == 0 {
					errs = append(errs, golemerr.ConfigErrorf("pipeline %q phase %q: workflow glob %q matched no files", pipelineName, phase.Name, pattern))
				}
			}
		}
	}

	for name, pipeline := range cfg.Pipelines {
		check(name, pipeline.PrePhases)
		check(name, pipeline.Phases)
	}
	return errs
}
