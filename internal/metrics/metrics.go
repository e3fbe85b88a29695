// Package metrics exposes Prometheus metrics for harvest runs and serves
// them, together with a progress snapshot, over HTTP during long exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for klexport. All methods are safe on
// a nil receiver so components can run unmetered in tests.
type Metrics struct {
	// Listing traversal
	PagesFetchedTotal  prometheus.Counter
	HarvestAbortsTotal prometheus.Counter

	// Date window decisions
	CampaignsSeenTotal     prometheus.Counter
	CampaignsIncludedTotal prometheus.Counter
	CampaignsExcludedTotal *prometheus.CounterVec

	// Stats fetching
	StatsRequestsTotal *prometheus.CounterVec
	RateLimitHitsTotal prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with all metrics registered on a private
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		PagesFetchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klexport_pages_fetched_total",
			Help: "Total number of campaign listing pages fetched",
		}),
		HarvestAbortsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klexport_harvest_aborts_total",
			Help: "Total number of walks stopped early by a listing failure",
		}),
		CampaignsSeenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klexport_campaigns_seen_total",
			Help: "Total number of campaigns parsed from listing pages",
		}),
		CampaignsIncludedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klexport_campaigns_included_total",
			Help: "Total number of campaigns inside the date window",
		}),
		CampaignsExcludedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klexport_campaigns_excluded_total",
				Help: "Total number of campaigns excluded from the export",
			},
			[]string{"reason"},
		),
		StatsRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klexport_stats_requests_total",
				Help: "Total number of campaign stats fetches by outcome",
			},
			[]string{"outcome"},
		),
		RateLimitHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "klexport_rate_limit_hits_total",
			Help: "Total number of 429 responses from the report endpoint",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.PagesFetchedTotal,
		m.HarvestAbortsTotal,
		m.CampaignsSeenTotal,
		m.CampaignsIncludedTotal,
		m.CampaignsExcludedTotal,
		m.StatsRequestsTotal,
		m.RateLimitHitsTotal,
	)

	return m
}

// Registry returns the private registry for serving.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncPagesFetched counts one fetched listing page.
func (m *Metrics) IncPagesFetched() {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.Inc()
}

// IncHarvestAborts counts one walk stopped early.
func (m *Metrics) IncHarvestAborts() {
	if m == nil {
		return
	}
	m.HarvestAbortsTotal.Inc()
}

// AddCampaignsSeen counts campaigns parsed from a page.
func (m *Metrics) AddCampaignsSeen(n int) {
	if m == nil {
		return
	}
	m.CampaignsSeenTotal.Add(float64(n))
}

// IncCampaignsIncluded counts one campaign inside the window.
func (m *Metrics) IncCampaignsIncluded() {
	if m == nil {
		return
	}
	m.CampaignsIncludedTotal.Inc()
}

// IncCampaignsExcluded counts one excluded campaign by reason.
func (m *Metrics) IncCampaignsExcluded(reason string) {
	if m == nil {
		return
	}
	m.CampaignsExcludedTotal.WithLabelValues(reason).Inc()
}

// IncStatsRequests counts one stats fetch by outcome.
func (m *Metrics) IncStatsRequests(outcome string) {
	if m == nil {
		return
	}
	m.StatsRequestsTotal.WithLabelValues(outcome).Inc()
}

// IncRateLimitHits counts one 429 from the report endpoint.
func (m *Metrics) IncRateLimitHits() {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.Inc()
}
