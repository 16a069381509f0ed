package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/coordinator"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <item-id>",
	Short: "Record a Done item's completion to the worklog",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
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
	if it.Status != backlog.StatusDone {
		return fmt.Errorf("item %s is %s, not Done", id, it.Status)
	}

	if GetDryRun() {
		fmt.Printf("Would record %s's completion to the worklog\n", id)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord := coordinator.New(cfg, nil, b)
	go coord.Run(ctx)

	if err := coord.ArchiveItem(id); err != nil {
		return err
	}

	fmt.Printf("Archived %s to the worklog\n", id)
	return nil
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
