package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mferov/klexport/internal/config"
	"github.com/mferov/klexport/internal/export"
	"github.com/mferov/klexport/internal/harvest"
	"github.com/mferov/klexport/internal/klaviyo"
	"github.com/mferov/klexport/internal/metrics"
	"github.com/mferov/klexport/internal/runlog"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Harvest campaigns and export them as CSV",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (overrides config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if exportOutput != "" {
		cfg.Export.Output = exportOutput
	}

	runID := uuid.New().String()
	logger := setupLogger(cfg.Logging).With("run_id", runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client := klaviyo.NewClient(klaviyo.Options{
		BaseURL:  cfg.API.BaseURL,
		APIKey:   cfg.API.APIKey,
		Revision: cfg.API.Revision,
		Timeout:  cfg.API.Timeout,
	})

	started := time.Now()
	engine := harvest.NewEngine(client, harvest.Config{
		Cutoff:         cfg.Cutoff(started),
		StatsTimeframe: cfg.Export.StatsTimeframe,
		StatsInterval:  cfg.RateLimit.StatsInterval,
		PageDelay:      cfg.RateLimit.PageDelay,
		MaxRetries:     cfg.RateLimit.MaxRetries,
		BackoffBase:    cfg.RateLimit.BackoffBase,
	}, logger, m)

	if cfg.Status.Enabled {
		server := metrics.NewServer(m, cfg.Status.ListenAddr,
			func() any { return engine.Progress() },
			logger.With("component", "status_server"))
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Stop(shutdownCtx)
		}()
	}

	logger.Info("starting harvest",
		"months_back", cfg.Export.MonthsBack,
		"cutoff", cfg.Cutoff(started).Format(time.RFC3339))

	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("harvest failed: %w", err)
	}

	if len(result.Records) == 0 {
		logger.Info("no campaigns found, nothing to export")
		recordRun(cfg, logger, runID, started, result)
		return nil
	}

	if err := export.WriteCSV(cfg.Export.Output, result.Records); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	logger.Info("export complete",
		"output", cfg.Export.Output,
		"campaigns", len(result.Records),
		"duration", time.Since(started).Round(time.Second))

	recordRun(cfg, logger, runID, started, result)
	printSummary(result, cfg.Export.Output)
	return nil
}

// recordRun appends the run summary to the run history, if configured.
func recordRun(cfg *config.Config, logger *slog.Logger, runID string, started time.Time, result *harvest.Result) {
	if cfg.RunLog.Path == "" {
		return
	}
	store, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		logger.Warn("failed to open run log", "error", err)
		return
	}
	defer store.Close()

	err = store.Record(runlog.Run{
		ID:        runID,
		StartedAt: started,
		Duration:  time.Since(started),
		Pages:     result.Pages,
		Seen:      result.Seen,
		Exported:  len(result.Records),
		Aborted:   result.Aborted,
		Output:    cfg.Export.Output,
	})
	if err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}

func printSummary(result *harvest.Result, output string) {
	var recipients, opens, clicks int64
	for _, r := range result.Records {
		recipients += r.Stats.Recipients
		opens += r.Stats.Opens
		clicks += r.Stats.Clicks
	}

	fmt.Fprintf(os.Stdout, "\nExported %d campaigns to %s\n", len(result.Records), output)
	fmt.Fprintf(os.Stdout, "  Pages fetched:    %d\n", result.Pages)
	fmt.Fprintf(os.Stdout, "  Campaigns seen:   %d\n", result.Seen)
	fmt.Fprintf(os.Stdout, "  Outside window:   %d\n", result.ExcludedOld)
	fmt.Fprintf(os.Stdout, "  Undatable:        %d\n", result.ExcludedUnparsable+result.ExcludedNoDate)
	fmt.Fprintf(os.Stdout, "  Total recipients: %d\n", recipients)
	fmt.Fprintf(os.Stdout, "  Total opens:      %d\n", opens)
	fmt.Fprintf(os.Stdout, "  Total clicks:     %d\n", clicks)
	if result.Aborted {
		fmt.Fprintln(os.Stdout, "  NOTE: listing failed mid-walk; results are partial")
	}
}
