package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	dryRun  bool
	verbose bool
	output  string
	cfgFile string
	target  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "golem",
	Short: "Phase Golem: an autonomous backlog-to-done orchestrator",
	Long: `golem walks a backlog of work items through configured phases,
spawning an external CLI agent for each phase and recording progress in
a version-controlled file store.

Core Commands:
  run       Start the run loop
  init      Scaffold a new project
  add       Add a backlog item
  status    Show current backlog state
  triage    Assign triage dimensions to a New item
  advance   Force one scheduler round for a single item
  unblock   Clear a Blocked item's block
  archive   Record a Done item's completion to the worklog`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .phase-golem/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&target, "target", "", "Restrict the run loop to one item id and its dependency closure")
}

// GetDryRun returns the dry-run flag value for use by subcommands.
func GetDryRun() bool { return dryRun }

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool { return verbose }

// GetOutput returns the output format for use by subcommands.
func GetOutput() string { return output }

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string { return cfgFile }

// GetTarget returns the --target item id, or "" if unset.
func GetTarget() string { return target }

// VerbosePrintf prints plain operator-facing narration only when verbose
// mode is enabled, separate from runLogger's structured event trail.
func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

// runLogger is the structured event logger for the run loop's internal
// trail (phase spawns, intents applied, halt decisions) — distinct from
// VerbosePrintf's plain operator narration.
var runLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv("PHASE_GOLEM_CONFIG", path)
	if verbose {
		runLogger.SetLevel(log.DebugLevel)
	}
}
