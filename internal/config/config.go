// Package config loads Phase Golem's project configuration.
// Configuration is resolved from (highest to lowest priority):
//  1. Command-line flags
//  2. Environment variables (PHASE_GOLEM_*)
//  3. Project config (.phase-golem/config.yaml in cwd)
//  4. Defaults
//
// There is deliberately no home-directory config tier: a Phase Golem
// project is always scoped to one repo, so a single project-local file
// plus env/flag overrides is the whole story.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/golemerr"
)

// Config is the full resolved configuration for a run.
type Config struct {
	Project    ProjectConfig                      `yaml:"project" json:"project" validate:"required"`
	Guardrails GuardrailsConfig                   `yaml:"guardrails" json:"guardrails"`
	Execution  ExecutionConfig                    `yaml:"execution" json:"execution" validate:"required"`
	Agent      AgentConfig                         `yaml:"agent" json:"agent"`
	Pipelines  map[string]backlog.PipelineConfig   `yaml:"pipelines" json:"pipelines" validate:"required,min=1,dive"`
}

// ProjectConfig names the project-local paths the core reads and writes.
type ProjectConfig struct {
	// Prefix is prepended to minted item ids (default: "WRK").
	Prefix string `yaml:"prefix" json:"prefix" validate:"required"`
	// BacklogPath is where BACKLOG.yaml lives (default: "BACKLOG.yaml").
	BacklogPath string `yaml:"backlog_path" json:"backlog_path" validate:"required"`
	// InboxPath is the drop-in inbox file (default: "BACKLOG_INBOX.yaml").
	InboxPath string `yaml:"inbox_path" json:"inbox_path" validate:"required"`
	// ChangesDir holds per-item phase artifact directories (default: "changes").
	ChangesDir string `yaml:"changes_dir" json:"changes_dir" validate:"required"`
	// WorklogDir holds the monthly append-only worklog (default: "_worklog").
	WorklogDir string `yaml:"worklog_dir" json:"worklog_dir" validate:"required"`
	// LockPath is the single-writer lock file (default: ".phase-golem/lock").
	LockPath string `yaml:"lock_path" json:"lock_path" validate:"required"`
}

// GuardrailsConfig names the per-dimension maxima enforced before a phase
// spawns an agent.
type GuardrailsConfig struct {
	MaxSize       backlog.Dimension `yaml:"max_size" json:"max_size" validate:"omitempty,oneof=low small medium high large"`
	MaxComplexity backlog.Dimension `yaml:"max_complexity" json:"max_complexity" validate:"omitempty,oneof=low small medium high large"`
	MaxRisk       backlog.Dimension `yaml:"max_risk" json:"max_risk" validate:"omitempty,oneof=low small medium high large"`
}

// ExecutionConfig names the concurrency and retry knobs the run loop and
// scheduler consult each round.
type ExecutionConfig struct {
	PhaseTimeoutMinutes int `yaml:"phase_timeout_minutes" json:"phase_timeout_minutes" validate:"required,min=1"`
	MaxRetries          int `yaml:"max_retries" json:"max_retries" validate:"min=0"`
	DefaultPhaseCap     int `yaml:"default_phase_cap" json:"default_phase_cap" validate:"min=0"`
	MaxWIP              int `yaml:"max_wip" json:"max_wip" validate:"required,min=1"`
	MaxConcurrent       int `yaml:"max_concurrent" json:"max_concurrent" validate:"required,min=1"`
}

// AgentConfig names the external CLI agent Phase Golem spawns per phase.
type AgentConfig struct {
	// Command is the CLI executable invoked for each phase (default: "claude").
	Command string `yaml:"command" json:"command" validate:"required"`
	// Args are extra arguments passed before the prompt is piped on stdin.
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Default returns the baseline configuration before any file/env/flag
// overrides are applied.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Prefix:      "WRK",
			BacklogPath: "BACKLOG.yaml",
			InboxPath:   "BACKLOG_INBOX.yaml",
			ChangesDir:  "changes",
			WorklogDir:  "_worklog",
			LockPath:    ".phase-golem/lock",
		},
		Guardrails: GuardrailsConfig{
			MaxSize:       backlog.DimMedium,
			MaxComplexity: backlog.DimMedium,
			MaxRisk:       backlog.DimMedium,
		},
		Execution: ExecutionConfig{
			PhaseTimeoutMinutes: 30,
			MaxRetries:          2,
			DefaultPhaseCap:     100,
			MaxWIP:              3,
			MaxConcurrent:       3,
		},
		Agent: AgentConfig{
			Command: "claude",
		},
		Pipelines: map[string]backlog.PipelineConfig{
			"feature": {
				PrePhases: []backlog.PhaseConfig{
					{Name: "research", Staleness: backlog.StalenessIgnore},
				},
				Phases: []backlog.PhaseConfig{
					{Name: "prd", Staleness: backlog.StalenessWarn},
					{Name: "build", IsDestructive: true, Staleness: backlog.StalenessBlock},
					{Name: "review", Staleness: backlog.StalenessWarn},
				},
			},
		},
	}
}

// projectConfigPath returns the project-local config path, honoring a
// PHASE_GOLEM_CONFIG override over the default .phase-golem/config.yaml.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("PHASE_GOLEM_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".phase-golem", "config.yaml")
}

// Load resolves configuration with priority flags > env > project > defaults.
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	if project, err := loadFromPath(projectConfigPath()); err == nil && project != nil {
		cfg = merge(cfg, project)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, golemerr.ConfigErrorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("PHASE_GOLEM_AGENT_COMMAND"); v != "" {
		cfg.Agent.Command = v
	}
	if v := os.Getenv("PHASE_GOLEM_MAX_WIP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Execution.MaxWIP = n
		}
	}
	if v := os.Getenv("PHASE_GOLEM_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Execution.MaxConcurrent = n
		}
	}
	if v := os.Getenv("PHASE_GOLEM_PHASE_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Execution.PhaseTimeoutMinutes = n
		}
	}
	if v := os.Getenv("PHASE_GOLEM_BACKLOG_PATH"); v != "" {
		cfg.Project.BacklogPath = v
	}
	return cfg
}

// merge overlays non-zero fields of src onto dst, src taking precedence.
func merge(dst, src *Config) *Config {
	if src.Project.Prefix != "" {
		dst.Project.Prefix = src.Project.Prefix
	}
	if src.Project.BacklogPath != "" {
		dst.Project.BacklogPath = src.Project.BacklogPath
	}
	if src.Project.InboxPath != "" {
		dst.Project.InboxPath = src.Project.InboxPath
	}
	if src.Project.ChangesDir != "" {
		dst.Project.ChangesDir = src.Project.ChangesDir
	}
	if src.Project.WorklogDir != "" {
		dst.Project.WorklogDir = src.Project.WorklogDir
	}
	if src.Project.LockPath != "" {
		dst.Project.LockPath = src.Project.LockPath
	}

	if src.Guardrails.MaxSize != "" {
		dst.Guardrails.MaxSize = src.Guardrails.MaxSize
	}
	if src.Guardrails.MaxComplexity != "" {
		dst.Guardrails.MaxComplexity = src.Guardrails.MaxComplexity
	}
	if src.Guardrails.MaxRisk != "" {
		dst.Guardrails.MaxRisk = src.Guardrails.MaxRisk
	}

	if src.Execution.PhaseTimeoutMinutes != 0 {
		dst.Execution.PhaseTimeoutMinutes = src.Execution.PhaseTimeoutMinutes
	}
	if src.Execution.MaxRetries != 0 {
		dst.Execution.MaxRetries = src.Execution.MaxRetries
	}
	if src.Execution.DefaultPhaseCap != 0 {
		dst.Execution.DefaultPhaseCap = src.Execution.DefaultPhaseCap
	}
	if src.Execution.MaxWIP != 0 {
		dst.Execution.MaxWIP = src.Execution.MaxWIP
	}
	if src.Execution.MaxConcurrent != 0 {
		dst.Execution.MaxConcurrent = src.Execution.MaxConcurrent
	}

	if src.Agent.Command != "" {
		dst.Agent.Command = src.Agent.Command
	}
	if len(src.Agent.Args) > 0 {
		dst.Agent.Args = src.Agent.Args
	}

	if len(src.Pipelines) > 0 {
		if dst.Pipelines == nil {
			dst.Pipelines = map[string]backlog.PipelineConfig{}
		}
		for name, p := range src.Pipelines {
			dst.Pipelines[name] = p
		}
	}

	return dst
}
