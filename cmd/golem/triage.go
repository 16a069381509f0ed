package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
)

var (
	triageSize       string
	triageRisk       string
	triageImpact     string
	triageComplexity string
)

var triageCmd = &cobra.Command{
	Use:   "triage <item-id>",
	Short: "Assign triage dimensions to a New item and move it to Scoping",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriage,
}

func runTriage(cmd *cobra.Command, args []string) error {
	id := args[0]
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	b, err := backlog.Load(cfg.Project.BacklogPath)
	if err != nil {
		return fmt.Errorf("load backlog: %w", err)
	}
	it := b.FindItem(id)
	if it == nil {
		return fmt.Errorf("item %s not found", id)
	}
	if it.Status != backlog.StatusNew {
		return fmt.Errorf("item %s is %s, not New", id, it.Status)
	}

	pipeline, ok := cfg.Pipelines[it.PipelineType]
	if !ok {
		return fmt.Errorf("item %s has unknown pipeline_type %q", id, it.PipelineType)
	}

	if GetDryRun() {
		fmt.Printf("Would triage %s: size=%s risk=%s impact=%s complexity=%s\n", id, triageSize, triageRisk, triageImpact, triageComplexity)
		return nil
	}

	it.Size = backlog.Dimension(triageSize)
	it.Risk = backlog.Dimension(triageRisk)
	it.Impact = backlog.Dimension(triageImpact)
	it.Complexity = backlog.Dimension(triageComplexity)

	prePhases := make([]string, len(pipeline.PrePhases))
	for i, p := range pipeline.PrePhases {
		prePhases[i] = p.Name
	}
	if len(prePhases) > 0 {
		it.StartTriage(prePhases, time.Now())
	} else {
		it.Status = backlog.StatusReady
		it.UpdatedAt = time.Now()
	}

	if violations := backlog.Validate(b); len(violations) > 0 {
		return fmt.Errorf("triage would violate invariants: %v", violations)
	}
	if err := backlog.Save(cfg.Project.BacklogPath, b); err != nil {
		return fmt.Errorf("save backlog: %w", err)
	}

	fmt.Printf("Triaged %s -> %s\n", id, it.Status)
	return nil
}

func init() {
	triageCmd.Flags().StringVar(&triageSize, "size", "medium", "Size dimension (low/small, medium, high/large)")
	triageCmd.Flags().StringVar(&triageRisk, "risk", "medium", "Risk dimension")
	triageCmd.Flags().StringVar(&triageImpact, "impact", "medium", "Impact dimension")
	triageCmd.Flags().StringVar(&triageComplexity, "complexity", "medium", "Complexity dimension")
	rootCmd.AddCommand(triageCmd)
}
