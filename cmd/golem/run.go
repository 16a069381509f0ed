package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phase-golem/golem/internal/agentrun"
	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/coordinator"
	"github.com/phase-golem/golem/internal/executor"
	"github.com/phase-golem/golem/internal/golemerr"
	"github.com/phase-golem/golem/internal/lock"
	"github.com/phase-golem/golem/internal/runloop"
	"github.com/phase-golem/golem/internal/scheduler"
	"github.com/phase-golem/golem/internal/vcs"
)

var runMaxRounds int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the run loop, walking backlog items through their phases until quiescent",
	RunE:  runRun,
}

// logSink adapts runloop.EventSink to the run loop's charmbracelet/log
// structured trail, kept separate from VerbosePrintf's plain operator
// narration per SPEC_FULL.md's two-tier logging rationale.
type logSink struct{}

func (logSink) RoundStarted(round int) {
	runLogger.Debug("round started", "round", round)
}

func (logSink) ActionDispatched(a scheduler.Action) {
	runLogger.Info("dispatching action", "kind", a.Kind, "item", a.ItemID, "phase", a.PhaseName)
}

func (logSink) IntentApplied(itemID string, kind executor.IntentKind) {
	runLogger.Info("intent applied", "item", itemID, "kind", kind)
}

func (logSink) Halted(reason runloop.HaltReason) {
	runLogger.Info("run loop halted", "reason", reason)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid config: %v", errs)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	if errs := config.ValidateWorkflowFiles(cfg, cwd); len(errs) > 0 {
		return fmt.Errorf("invalid workflows: %v", errs)
	}

	b, err := backlog.Load(cfg.Project.BacklogPath)
	if err != nil {
		return fmt.Errorf("load backlog: %w", err)
	}
	if violations := backlog.Validate(b); len(violations) > 0 {
		return fmt.Errorf("backlog invariant violation: %v", violations)
	}

	heldLock, err := lock.Acquire(cfg.Project.LockPath)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	defer heldLock.Release()

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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go coord.Run(ctx)

	defer func() {
		registry.TerminateAll(agentrun.DefaultGrace())
		if err := coord.BatchCommit(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: final batch commit failed: %v\n", err)
		}
	}()

	loop := &runloop.Loop{
		Cfg:         cfg,
		Coordinator: coord,
		Executor:    executor.New(cfg, runtime, repo),
		Sink:        logSink{},
		MaxRounds:   runMaxRounds,
		TargetID:    GetTarget(),
	}

	reason, err := loop.Run(ctx)
	if err != nil {
		if golemerr.IsFatal(err) {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	fmt.Printf("Run loop halted: %s\n", reason)
	return nil
}

func init() {
	runCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "Maximum scheduling rounds before stopping (0 = unbounded)")
	rootCmd.AddCommand(runCmd)
}
