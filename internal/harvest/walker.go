package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mferov/klexport/internal/klaviyo"
	"github.com/mferov/klexport/internal/metrics"
)

// ErrListingUnavailable means the very first listing page could not be
// fetched. This is the only failure that aborts a harvest outright.
var ErrListingUnavailable = errors.New("campaign listing unavailable")

const campaignsPath = "/campaigns/"

// Walker follows the campaign listing's next-page links until they run out.
type Walker struct {
	client  *klaviyo.Client
	delay   time.Duration // courtesy delay between page fetches
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWalker creates a Walker. delay is applied between consecutive page
// fetches to stay clear of the listing rate limit.
func NewWalker(client *klaviyo.Client, delay time.Duration, logger *slog.Logger, m *metrics.Metrics) *Walker {
	return &Walker{client: client, delay: delay, logger: logger, metrics: m}
}

// Walk fetches listing pages in order, invoking fn for each. The initial
// query is only sent on the first request; next-page URLs embed it. A
// non-success response after at least one page stops the walk, keeping the
// pages already handed to fn; aborted reports that case. An empty listing
// yields a single page with no data and no error.
func (w *Walker) Walk(ctx context.Context, fn func(*klaviyo.CampaignsPage) error) (aborted bool, err error) {
	pageURL := campaignsPath
	query := klaviyo.CampaignsQuery()

	for pages := 0; ; pages++ {
		page, err := w.client.Campaigns(ctx, pageURL, query)
		if err != nil {
			if pages == 0 {
				return true, fmt.Errorf("%w: %v", ErrListingUnavailable, err)
			}
			w.logger.Warn("campaign listing failed mid-walk, keeping partial results",
				"pages", pages, "error", err)
			w.metrics.IncHarvestAborts()
			return true, nil
		}
		w.metrics.IncPagesFetched()

		if err := fn(page); err != nil {
			return false, err
		}
		if page.Links.Next == "" {
			return false, nil
		}
		pageURL, query = page.Links.Next, nil

		if err := sleepCtx(ctx, w.delay); err != nil {
			return true, err
		}
	}
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
