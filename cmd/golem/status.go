package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
	"github.com/phase-golem/golem/internal/worklog"
)

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current backlog state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if statusHistory > 0 {
		entries, err := worklog.NewWriter(cfg.Project.WorklogDir).History(statusHistory)
		if err != nil {
			return fmt.Errorf("read worklog history: %w", err)
		}
		return printHistory(entries)
	}

	b, err := backlog.Load(cfg.Project.BacklogPath)
	if err != nil {
		return fmt.Errorf("load backlog: %w", err)
	}

	switch GetOutput() {
	case "json":
		return printJSON(b)
	case "yaml":
		return printYAML(b)
	default:
		return printStatusTable(b)
	}
}

func printStatusTable(b *backlog.BacklogFile) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPHASE\tPIPELINE\tRETRY\tTITLE")
	for _, it := range b.Items {
		phase := "-"
		if it.CurrentPhase != nil {
			phase = *it.CurrentPhase
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", it.ID, it.Status, phase, it.PipelineType, it.RetryCount, it.Title)
	}
	return w.Flush()
}

func printJSON(b *backlog.BacklogFile) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func printYAML(b *backlog.BacklogFile) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(b)
}

func printHistory(entries []worklog.Entry) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tID\tPHASE\tOUTCOME\tSUMMARY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.When.Format("2006-01-02 15:04"), e.ItemID, e.Phase, e.Outcome, e.Summary)
	}
	return w.Flush()
}

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 0, "Show the last N worklog entries instead of current backlog state")
	rootCmd.AddCommand(statusCmd)
}
