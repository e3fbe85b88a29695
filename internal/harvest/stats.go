package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mferov/klexport/internal/klaviyo"
	"github.com/mferov/klexport/internal/metrics"
)

// StatisticKeys is the statistic set requested for every campaign report.
var StatisticKeys = []string{
	"recipients",
	"opens",
	"opens_unique",
	"clicks",
	"clicks_unique",
	"open_rate",
	"click_rate",
	"bounced",
	"delivered",
}

// reportType is the resource type of a campaign values report request.
const reportType = "campaign-values-report"

// StatsFetcher fetches aggregated statistics for single campaigns. Only rate
// limiting is retried, with delays growing arithmetically (attempt x base) up
// to maxRetries; every other failure degrades to zero stats immediately.
type StatsFetcher struct {
	client      *klaviyo.Client
	timeframe   string // named reporting window, e.g. "last_6_months"
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics

	// sleep is swapped out in tests to observe backoff delays.
	sleep func(context.Context, time.Duration) error
}

// NewStatsFetcher creates a StatsFetcher.
func NewStatsFetcher(client *klaviyo.Client, timeframe string, maxRetries int, backoffBase time.Duration, logger *slog.Logger, m *metrics.Metrics) *StatsFetcher {
	return &StatsFetcher{
		client:      client,
		timeframe:   timeframe,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		logger:      logger,
		metrics:     m,
		sleep:       sleepCtx,
	}
}

// Fetch returns statistics for one campaign. It never returns an error:
// every unrecoverable outcome yields the all-zero Stats so the harvest is
// not torn down by a single campaign's report failure.
func (f *StatsFetcher) Fetch(ctx context.Context, campaignID, metricID string) Stats {
	req := &klaviyo.ValuesReportRequest{
		Data: klaviyo.ValuesReportData{
			Type: reportType,
			Attributes: klaviyo.ValuesReportAttributes{
				Timeframe:          klaviyo.Timeframe{Key: f.timeframe},
				Filter:             fmt.Sprintf("equals(campaign_id,%q)", campaignID),
				Statistics:         StatisticKeys,
				ConversionMetricID: metricID,
			},
		},
	}

	for attempt := 0; ; attempt++ {
		report, err := f.client.CampaignValuesReport(ctx, req)
		switch {
		case err == nil:
			f.metrics.IncStatsRequests("success")
			return statsFromReport(report)
		case klaviyo.IsRateLimited(err):
			f.metrics.IncRateLimitHits()
			if attempt >= f.maxRetries {
				f.logger.Warn("rate limit retries exhausted, using zero stats",
					"campaign_id", campaignID, "attempts", attempt+1)
				f.metrics.IncStatsRequests("retries_exhausted")
				return Stats{}
			}
			wait := time.Duration(attempt+1) * f.backoffBase
			f.logger.Warn("rate limited, backing off",
				"campaign_id", campaignID, "wait", wait)
			if err := f.sleep(ctx, wait); err != nil {
				return Stats{}
			}
		default:
			f.logger.Warn("stats request failed, using zero stats",
				"campaign_id", campaignID, "error", err)
			f.metrics.IncStatsRequests("remote_error")
			return Stats{}
		}
	}
}

// statsFromReport extracts the first result row. An empty result set is a
// valid outcome (no sends in the window) and yields zero stats.
func statsFromReport(report *klaviyo.ValuesReportResponse) Stats {
	results := report.Data.Attributes.Results
	if len(results) == 0 {
		return Stats{}
	}
	row := results[0].Statistics
	return Stats{
		Recipients:   int64(row["recipients"]),
		Delivered:    int64(row["delivered"]),
		Bounced:      int64(row["bounced"]),
		Opens:        int64(row["opens"]),
		OpensUnique:  int64(row["opens_unique"]),
		Clicks:       int64(row["clicks"]),
		ClicksUnique: int64(row["clicks_unique"]),
		OpenRate:     toPercent(row["open_rate"]),
		ClickRate:    toPercent(row["click_rate"]),
	}
}

// toPercent converts a 0-1 fraction to a 0-100 percentage rounded to two
// decimal places. The API reports rates as fractions; the export contract is
// percentages.
func toPercent(fraction float64) float64 {
	return math.Round(fraction*100*100) / 100
}
