package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phase-golem/golem/internal/agentrun"
	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/coordinator"
	"github.com/phase-golem/golem/internal/executor"
	"github.com/phase-golem/golem/internal/lock"
	"github.com/phase-golem/golem/internal/runloop"
	"github.com/phase-golem/golem/internal/vcs"
)

var advanceCmd = &cobra.Command{
	Use:   "advance <item-id>",
	Short: "Force one scheduler round restricted to a single item and its dependency closure",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdvance,
}

func runAdvance(cmd *cobra.Command, args []string) error {
	itemID := args[0]

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	b, err := backlog.Load(cfg.Project.BacklogPath)
	if err != nil {
		return fmt.Errorf("load backlog: %w", err)
	}
	if b.FindItem(itemID) == nil {
		return fmt.Errorf("item %s not found", itemID)
	}

	heldLock, err := lock.Acquire(cfg.Project.LockPath)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	defer heldLock.Release()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	repo, err := vcs.Open(cwd)
	if err != nil {
		return fmt.Errorf("open git repo: %w", err)
	}

	command, cmdArgs := agentrun.ResolveCommand(agentrun.ToolchainOptions{
		ConfigCommand: cfg.Agent.Command,
		ConfigArgs:    cfg.Agent.Args,
		EnvLookup:     os.Getenv,
	})
	registry := agentrun.NewRegistry()
	runtime := agentrun.New(command, cmdArgs, registry)

	coord := coordinator.New(cfg, repo, b)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)
	defer func() {
		registry.TerminateAll()
		_ = coord.BatchCommit()
	}()

	loop := &runloop.Loop{
		Cfg:         cfg,
		Coordinator: coord,
		Executor:    executor.New(cfg, runtime, repo),
		Sink:        logSink{},
		MaxRounds:   1,
		TargetID:    itemID,
	}

	reason, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Advanced %s: %s\n", itemID, reason)
	return nil
}

func init() {
	rootCmd.AddCommand(advanceCmd)
}
