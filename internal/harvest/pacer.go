package harvest

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between outbound stats calls. It wraps a
// token bucket with burst 1, so rapid or concurrent callers can never observe
// an effective interval below the configured minimum.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer creates a Pacer with the given minimum interval between calls.
// A non-positive interval disables pacing.
func NewPacer(minInterval time.Duration) *Pacer {
	if minInterval <= 0 {
		return &Pacer{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{lim: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next call is allowed or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}
