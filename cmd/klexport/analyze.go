package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mferov/klexport/internal/config"
	"github.com/mferov/klexport/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze an exported campaign CSV",
	Long:  `Analyze an exported campaign CSV: engagement totals, best and worst performers, and subject-line patterns. Defaults to the configured output file.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// Analysis is offline; only borrow the output path from the config and
	// fall back to the default filename when no usable config exists.
	path := "klaviyo_campaigns_export.csv"
	if len(args) > 0 {
		path = args[0]
	} else if cfg, err := config.Load(cfgFile); err == nil {
		path = cfg.Export.Output
	}

	records, err := report.LoadCSV(path)
	if err != nil {
		return fmt.Errorf("failed to load export: %w", err)
	}

	report.Analyze(records).Render(os.Stdout)
	return nil
}
