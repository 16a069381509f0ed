package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
)

var (
	addTitle        string
	addDescription  string
	addPipelineType string
	addDependencies []string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new item to the backlog in status New",
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(addTitle) == "" {
		return fmt.Errorf("--title is required")
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, ok := cfg.Pipelines[addPipelineType]; !ok {
		return fmt.Errorf("unknown pipeline_type %q", addPipelineType)
	}

	b, err := backlog.Load(cfg.Project.BacklogPath)
	if err != nil {
		return fmt.Errorf("load backlog: %w", err)
	}

	now := time.Now()
	id := fmt.Sprintf("%s%d", cfg.Project.Prefix, b.NextItemID)

	item := backlog.Item{
		ID:           id,
		Title:        addTitle,
		Status:       backlog.StatusNew,
		PipelineType: addPipelineType,
		Dependencies: addDependencies,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if addDescription != "" {
		item.Description = &backlog.StructuredDescription{Context: addDescription}
	}

	if GetDryRun() {
		fmt.Printf("Would add item %s: %q (pipeline=%s)\n", id, addTitle, addPipelineType)
		return nil
	}

	b.Items = append(b.Items, item)
	b.NextItemID++

	if violations := backlog.Validate(b); len(violations) > 0 {
		return fmt.Errorf("adding item would violate invariants: %v", violations)
	}
	if err := backlog.Save(cfg.Project.BacklogPath, b); err != nil {
		return fmt.Errorf("save backlog: %w", err)
	}

	fmt.Printf("Added %s: %s\n", id, addTitle)
	return nil
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "Item title (required)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Free-text context for the item")
	addCmd.Flags().StringVar(&addPipelineType, "pipeline", "feature", "Pipeline type to walk the item through")
	addCmd.Flags().StringSliceVar(&addDependencies, "depends-on", nil, "Item ids this item depends on")
	rootCmd.AddCommand(addCmd)
}
