package harvest

import (
	"time"

	"github.com/mferov/klexport/internal/metrics"
)

// Window decides which records fall inside the export's date window.
// The effective timestamp is send_time when present and parseable, else
// created_at. Records whose timestamps are missing or unparseable are
// excluded: an undatable record must not silently pollute a time-bounded
// export. The lower bound is inclusive; there is no upper bound.
type Window struct {
	Cutoff  time.Time
	metrics *metrics.Metrics

	// Decision counts, for the run summary.
	Included           int
	ExcludedOld        int
	ExcludedUnparsable int
	ExcludedNoDate     int
}

// NewWindow creates a Window with the given inclusive cutoff.
func NewWindow(cutoff time.Time, m *metrics.Metrics) *Window {
	return &Window{Cutoff: cutoff, metrics: m}
}

// Include reports whether r falls inside the window and updates the counts.
func (w *Window) Include(r Record) bool {
	if r.SendTime == "" && r.CreatedAt == "" {
		w.ExcludedNoDate++
		w.metrics.IncCampaignsExcluded("no_date")
		return false
	}
	ts, ok := effectiveTime(r)
	if !ok {
		w.ExcludedUnparsable++
		w.metrics.IncCampaignsExcluded("unparseable_date")
		return false
	}
	if ts.Before(w.Cutoff) {
		w.ExcludedOld++
		w.metrics.IncCampaignsExcluded("before_cutoff")
		return false
	}
	w.Included++
	w.metrics.IncCampaignsIncluded()
	return true
}

// effectiveTime returns the record's effective timestamp: the first of
// send_time, created_at that is present and parses as RFC 3339.
func effectiveTime(r Record) (time.Time, bool) {
	for _, candidate := range []string{r.SendTime, r.CreatedAt} {
		if candidate == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, candidate); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
