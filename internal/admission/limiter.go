// Package admission enforces per-tenant weighted request quotas ahead of
// business resolvers.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hzplatform/storefront-gateway/internal/counter"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

const (
	window = 60 * time.Second
	// counterTTL covers the current window plus grace for clock skew.
	counterTTL = 2 * window
)

// tierLimits maps a tenant's subscription tier to requests per minute.
// Unknown or absent tiers get the free limit.
var tierLimits = map[tenant.RateTier]int64{
	tenant.TierFree:       60,
	tenant.TierBeginning:  300,
	tenant.TierPro:        1200,
	tenant.TierEnterprise: 6000,
}

// LimitForTier returns the per-minute request budget for a tier.
func LimitForTier(tier tenant.RateTier) int64 {
	if limit, ok := tierLimits[tier]; ok {
		return limit
	}
	return tierLimits[tenant.TierFree]
}

// Verdict is the admission decision for one request.
type Verdict struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	// RetryAfter is the whole-second delay after which a rejected caller
	// may try again (the next window boundary).
	RetryAfter int
}

// LimiterMetrics receives admission outcomes. A nil receiver disables
// reporting.
type LimiterMetrics interface {
	Admission(outcome string)
}

// Limiter applies a fixed window with cost accumulation: one atomic
// increment per request against the shared counter store, O(1) memory per
// tenant per window.
type Limiter struct {
	store   counter.Store
	logger  *slog.Logger
	metrics LimiterMetrics
	now     func() time.Time
}

func NewLimiter(store counter.Store, logger *slog.Logger, metrics LimiterMetrics) *Limiter {
	return &Limiter{
		store:   store,
		logger:  logger.With(slog.String("component", "admission")),
		metrics: metrics,
		now:     time.Now,
	}
}

// SetClock overrides the limiter's time source. Test use only.
func (l *Limiter) SetClock(now func() time.Time) { l.now = now }

// Admit accumulates cost against the tenant's current window and decides
// whether the request proceeds. The increment happens before the
// comparison, so concurrent writers cannot under-count. A counter-store
// failure fails open: normal traffic outlives limiter outages.
func (l *Limiter) Admit(ctx context.Context, tenantID string, tier tenant.RateTier, cost int) Verdict {
	limit := LimitForTier(tier)
	bucket := l.now().Unix() / int64(window/time.Second)
	key := fmt.Sprintf("quota:%s:%d", tenantID, bucket)

	total, err := l.store.IncrBy(ctx, key, int64(cost), counterTTL)
	if err != nil {
		l.logger.Warn("counter store unavailable, admitting request",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		if l.metrics != nil {
			l.metrics.Admission("store_error")
		}
		return Verdict{Allowed: true, Limit: limit, Remaining: limit, RetryAfter: 0}
	}

	remaining := limit - total
	if remaining < 0 {
		remaining = 0
	}
	v := Verdict{
		Allowed:    total <= limit,
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: int(window / time.Second),
	}
	if l.metrics != nil {
		if v.Allowed {
			l.metrics.Admission("allowed")
		} else {
			l.metrics.Admission("rejected")
		}
	}
	return v
}
