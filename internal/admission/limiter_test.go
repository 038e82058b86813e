package admission

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hzplatform/storefront-gateway/internal/counter"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

func newTestLimiter(store counter.Store) *Limiter {
	return NewLimiter(store, slog.New(slog.DiscardHandler), nil)
}

func TestAdmitMonotonicity(t *testing.T) {
	store := counter.NewMemoryStore()
	l := newTestLimiter(store)

	base := time.Unix(1_700_000_000, 0)
	l.SetClock(func() time.Time { return base })
	store.SetClock(func() time.Time { return base })

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		v := l.Admit(ctx, "ws_free", tenant.TierFree, CostRead)
		if !v.Allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
		if want := int64(60 - (i + 1)); v.Remaining != want {
			t.Fatalf("request %d remaining = %d, want %d", i+1, v.Remaining, want)
		}
	}

	v := l.Admit(ctx, "ws_free", tenant.TierFree, CostRead)
	if v.Allowed {
		t.Error("61st request in window should be rejected")
	}
	if v.RetryAfter != 60 {
		t.Errorf("RetryAfter = %d, want 60", v.RetryAfter)
	}
	if v.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", v.Remaining)
	}
}

func TestAdmitWeightedCost(t *testing.T) {
	store := counter.NewMemoryStore()
	l := newTestLimiter(store)

	base := time.Unix(1_700_000_000, 0)
	l.SetClock(func() time.Time { return base })
	store.SetClock(func() time.Time { return base })

	ctx := context.Background()

	// A mutation counts as two reads toward the same limit.
	v := l.Admit(ctx, "ws_w", tenant.TierFree, CostMutation)
	if !v.Allowed || v.Remaining != 58 {
		t.Errorf("after one mutation: remaining = %d, want 58", v.Remaining)
	}

	// 29 more mutations exhaust the budget of 60.
	for i := 0; i < 29; i++ {
		v = l.Admit(ctx, "ws_w", tenant.TierFree, CostMutation)
	}
	if !v.Allowed || v.Remaining != 0 {
		t.Errorf("at limit: allowed=%v remaining=%d", v.Allowed, v.Remaining)
	}
	if v = l.Admit(ctx, "ws_w", tenant.TierFree, CostRead); v.Allowed {
		t.Error("request past weighted limit should be rejected")
	}
}

func TestAdmitWindowReset(t *testing.T) {
	store := counter.NewMemoryStore()
	l := newTestLimiter(store)

	base := time.Unix(1_700_000_040, 0)
	l.SetClock(func() time.Time { return base })
	store.SetClock(func() time.Time { return base })

	ctx := context.Background()
	for i := 0; i < 61; i++ {
		l.Admit(ctx, "ws_r", tenant.TierFree, CostRead)
	}
	if v := l.Admit(ctx, "ws_r", tenant.TierFree, CostRead); v.Allowed {
		t.Fatal("tenant should be over quota")
	}

	// Cross the bucket boundary; no manual intervention needed.
	later := base.Add(60 * time.Second)
	l.SetClock(func() time.Time { return later })
	store.SetClock(func() time.Time { return later })
	if v := l.Admit(ctx, "ws_r", tenant.TierFree, CostRead); !v.Allowed {
		t.Error("new window should admit the tenant again")
	}
}

func TestAdmitTierLimits(t *testing.T) {
	tests := []struct {
		tier  tenant.RateTier
		limit int64
	}{
		{tenant.TierFree, 60},
		{tenant.TierBeginning, 300},
		{tenant.TierPro, 1200},
		{tenant.TierEnterprise, 6000},
		{tenant.RateTier("unknown"), 60},
		{tenant.RateTier(""), 60},
	}
	for _, tt := range tests {
		if got := LimitForTier(tt.tier); got != tt.limit {
			t.Errorf("LimitForTier(%q) = %d, want %d", tt.tier, got, tt.limit)
		}
	}
}

func TestAdmitFailsOpenOnStoreError(t *testing.T) {
	l := newTestLimiter(errorStore{})
	v := l.Admit(context.Background(), "ws_x", tenant.TierFree, CostRead)
	if !v.Allowed {
		t.Error("counter store outage must not reject traffic")
	}
}

func TestAdmitTenantsIsolated(t *testing.T) {
	store := counter.NewMemoryStore()
	l := newTestLimiter(store)

	ctx := context.Background()
	for i := 0; i < 61; i++ {
		l.Admit(ctx, "ws_noisy", tenant.TierFree, CostRead)
	}
	if v := l.Admit(ctx, "ws_quiet", tenant.TierFree, CostRead); !v.Allowed {
		t.Error("one tenant's burst must not consume another's quota")
	}
}

type errorStore struct{}

func (errorStore) IncrBy(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}
func (errorStore) Get(context.Context, string) (int64, error) {
	return 0, errors.New("store down")
}
