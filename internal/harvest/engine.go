// Package harvest implements the campaign harvest pipeline: paginated
// listing traversal, inclusion joins, date-window filtering, conversion
// metric resolution, and rate-limit-aware per-campaign stats fetching.
package harvest

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mferov/klexport/internal/klaviyo"
	"github.com/mferov/klexport/internal/metrics"
)

// Config holds the tunables of one harvest run. The harvest window (Cutoff)
// and the stats reporting timeframe are deliberately independent settings;
// neither is derived from the other.
type Config struct {
	Cutoff         time.Time
	StatsTimeframe string
	StatsInterval  time.Duration // minimum delay between stats calls
	PageDelay      time.Duration // courtesy delay between listing pages
	MaxRetries     int           // rate-limit retries per stats call
	BackoffBase    time.Duration // first retry delay; grows arithmetically
}

// Result is the outcome of one harvest run.
type Result struct {
	Records []Record // merged records in listing arrival order
	Pages   int
	Seen    int  // campaigns parsed before filtering
	Aborted bool // listing failed mid-walk, Records are partial

	Included           int
	ExcludedOld        int
	ExcludedUnparsable int
	ExcludedNoDate     int
}

// Progress is a point-in-time snapshot of a running harvest, served by the
// status endpoint.
type Progress struct {
	Pages        int64 `json:"pages"`
	Seen         int64 `json:"campaigns_seen"`
	Included     int64 `json:"campaigns_included"`
	StatsFetched int64 `json:"stats_fetched"`
}

// Engine runs the end-to-end pipeline: walk the listing, join inclusions,
// filter by date window, resolve the conversion metric once, then fetch
// stats per surviving campaign paced by the rate limiter.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	window   *Window
	walker   *Walker
	pacer    *Pacer
	resolver *MetricResolver
	stats    *StatsFetcher

	pages        atomic.Int64
	seen         atomic.Int64
	included     atomic.Int64
	statsFetched atomic.Int64
}

// NewEngine wires an Engine from a client and config. m may be nil for
// unmetered runs.
func NewEngine(client *klaviyo.Client, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		window:   NewWindow(cfg.Cutoff, m),
		walker:   NewWalker(client, cfg.PageDelay, logger.With("component", "walker"), m),
		pacer:    NewPacer(cfg.StatsInterval),
		resolver: NewMetricResolver(client, logger.With("component", "metric_resolver")),
		stats:    NewStatsFetcher(client, cfg.StatsTimeframe, cfg.MaxRetries, cfg.BackoffBase, logger.With("component", "stats"), m),
	}
}

// Progress returns a snapshot of the running harvest.
func (e *Engine) Progress() Progress {
	return Progress{
		Pages:        e.pages.Load(),
		Seen:         e.seen.Load(),
		Included:     e.included.Load(),
		StatsFetched: e.statsFetched.Load(),
	}
}

// Run executes the harvest. It returns an error only when the first listing
// page is unreachable or the context is cancelled; every other failure
// degrades per record and the run continues.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	var survivors []Record
	aborted, err := e.walker.Walk(ctx, func(page *klaviyo.CampaignsPage) error {
		records := mergePage(page)
		res.Pages++
		res.Seen += len(records)
		e.pages.Add(1)
		e.seen.Add(int64(len(records)))
		e.metrics.AddCampaignsSeen(len(records))
		for _, r := range records {
			if e.window.Include(r) {
				survivors = append(survivors, r)
				e.included.Add(1)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Aborted = aborted
	res.Included = e.window.Included
	res.ExcludedOld = e.window.ExcludedOld
	res.ExcludedUnparsable = e.window.ExcludedUnparsable
	res.ExcludedNoDate = e.window.ExcludedNoDate

	e.logger.Info("campaign listing complete",
		"pages", res.Pages,
		"seen", res.Seen,
		"included", res.Included,
		"excluded_old", res.ExcludedOld,
		"excluded_unparseable", res.ExcludedUnparsable,
		"excluded_no_date", res.ExcludedNoDate,
		"aborted", res.Aborted)

	// Nothing survived: skip the metric lookup and stats calls entirely.
	if len(survivors) == 0 {
		return res, nil
	}

	metricID := e.resolver.Resolve(ctx)

	for i := range survivors {
		if err := e.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		survivors[i].Stats = e.stats.Fetch(ctx, survivors[i].CampaignID, metricID)
		e.statsFetched.Add(1)
		e.logger.Debug("fetched campaign stats",
			"campaign", survivors[i].CampaignName,
			"position", i+1,
			"total", len(survivors))
	}

	res.Records = survivors
	return res, nil
}
