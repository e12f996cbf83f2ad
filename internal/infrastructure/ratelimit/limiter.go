package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"ContentRefresher/internal/ports"
)

// Limiter spaces calls to one external API at a fixed interval.
type Limiter struct {
	interval time.Duration
	limiter  *rate.Limiter
}

var _ ports.Limiter = (*Limiter)(nil)

// New builds a limiter that admits one call per interval. The bucket starts
// empty, so even the first call waits a full interval.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.Allow()
	return &Limiter{interval: interval, limiter: l}
}

// Interval reports the configured spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Unlimited never blocks; used when delays are disabled and in tests.
var Unlimited ports.Limiter = unlimited{}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
