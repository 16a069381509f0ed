package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
)

var unblockContext string

var unblockCmd = &cobra.Command{
	Use:   "unblock <item-id>",
	Short: "Clear a Blocked item's block and resume it from the status it was blocked from",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnblock,
}

func runUnblock(cmd *cobra.Command, args []string) error {
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
	if it.Status != backlog.StatusBlocked {
		return fmt.Errorf("item %s is %s, not Blocked", id, it.Status)
	}

	if GetDryRun() {
		fmt.Printf("Would unblock %s back to %s\n", id, *it.BlockedFromStatus)
		return nil
	}

	it.Unblock(unblockContext, time.Now())

	if violations := backlog.Validate(b); len(violations) > 0 {
		return fmt.Errorf("unblock would violate invariants: %v", violations)
	}
	if err := backlog.Save(cfg.Project.BacklogPath, b); err != nil {
		return fmt.Errorf("save backlog: %w", err)
	}

	fmt.Printf("Unblocked %s -> %s (retry_count reset)\n", id, it.Status)
	return nil
}

func init() {
	unblockCmd.Flags().StringVar(&unblockContext, "context", "", "Context explaining why the item is safe to resume")
	rootCmd.AddCommand(unblockCmd)
}
