package origintrust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hzplatform/storefront-gateway/internal/counter"
)

// IP limiting for edge-verified data endpoints is deliberately separate
// from per-tenant admission: the threat here is anonymous scraping, not a
// tenant's own burst.
const (
	ipLimit      = 60
	ipWindow     = 60 * time.Second
	ipCounterTTL = 2 * ipWindow
)

// IPLimiter applies a fixed request window per client IP, backed by the
// shared counter store so all gateway replicas see the same window.
type IPLimiter struct {
	store  counter.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewIPLimiter(store counter.Store, logger *slog.Logger) *IPLimiter {
	return &IPLimiter{
		store:  store,
		logger: logger.With(slog.String("component", "ip_limiter")),
		now:    time.Now,
	}
}

// SetClock overrides the limiter's time source. Test use only.
func (l *IPLimiter) SetClock(now func() time.Time) { l.now = now }

// Allow admits or rejects a request from ip. A counter-store failure fails
// open: enforcement degrades rather than taking down cached data serving.
func (l *IPLimiter) Allow(ctx context.Context, ip string) bool {
	bucket := l.now().Unix() / int64(ipWindow/time.Second)
	key := fmt.Sprintf("iplimit:%s:%d", ip, bucket)

	n, err := l.store.IncrBy(ctx, key, 1, ipCounterTTL)
	if err != nil {
		l.logger.Warn("counter store unavailable, allowing request",
			slog.String("ip", ip),
			slog.String("error", err.Error()),
		)
		return true
	}
	return n <= ipLimit
}
