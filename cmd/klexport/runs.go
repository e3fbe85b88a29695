package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mferov/klexport/internal/config"
	"github.com/mferov/klexport/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past harvest runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "max runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.RunLog.Path == "" {
		return fmt.Errorf("run history is disabled (set run_log.path)")
	}

	store, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Started", "Duration", "Pages", "Seen", "Exported", "Output", "Notes"})
	for _, run := range runs {
		notes := ""
		if run.Aborted {
			notes = "partial"
		}
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.RFC3339),
			run.Duration.Round(time.Second),
			run.Pages,
			run.Seen,
			run.Exported,
			run.Output,
			notes,
		})
	}
	t.Render()
	return nil
}
