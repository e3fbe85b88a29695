package harvest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mferov/klexport/internal/klaviyo"
)

// FallbackMetricID is cached when no conversion metric can be resolved.
// Reports sent with it degrade to zeroed statistics instead of failing hard.
const FallbackMetricID = "PLACEHOLDER"

// MetricResolver discovers the conversion metric id the report endpoint
// requires. The lookup runs at most once per resolver: the first outcome,
// real or fallback, is cached and shared by every later stats call.
type MetricResolver struct {
	client *klaviyo.Client
	logger *slog.Logger

	once sync.Once
	id   string
}

// NewMetricResolver creates a MetricResolver bound to client.
func NewMetricResolver(client *klaviyo.Client, logger *slog.Logger) *MetricResolver {
	return &MetricResolver{client: client, logger: logger}
}

// Resolve returns the conversion metric id, fetching it on the first call.
// It never fails: on any lookup error the fallback id is cached instead.
func (r *MetricResolver) Resolve(ctx context.Context) string {
	r.once.Do(func() {
		page, err := r.client.Metrics(ctx)
		if err != nil {
			r.logger.Warn("conversion metric lookup failed, using fallback id", "error", err)
			r.id = FallbackMetricID
			return
		}
		if len(page.Data) == 0 {
			r.logger.Warn("no metrics available, using fallback id")
			r.id = FallbackMetricID
			return
		}
		r.id = page.Data[0].ID
		r.logger.Debug("resolved conversion metric",
			"metric_id", r.id, "name", page.Data[0].Attributes.Name)
	})
	return r.id
}
