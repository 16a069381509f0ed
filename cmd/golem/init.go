package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phase-golem/golem/internal/backlog"
	"github.com/phase-golem/golem/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new Phase Golem project in the current directory",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	path := filepath.Join(".phase-golem", "config.yaml")

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if GetDryRun() {
		fmt.Printf("Would write %s and an empty %s\n", path, cfg.Project.BacklogPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if _, err := os.Stat(cfg.Project.BacklogPath); os.IsNotExist(err) {
		if err := backlog.Save(cfg.Project.BacklogPath, backlog.NewBacklogFile()); err != nil {
			return fmt.Errorf("write backlog: %w", err)
		}
	}

	fmt.Printf("Initialized Phase Golem project (config: %s, backlog: %s)\n", path, cfg.Project.BacklogPath)
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
