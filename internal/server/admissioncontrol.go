package server

import (
	"log/slog"
	"net/http"

	"github.com/hzplatform/storefront-gateway/internal/admission"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

// AdmissionMiddleware applies the per-tenant weighted quota. The tenant is
// identified independently of the resolver (header, GraphQL variables, path
// segment) so header-routed API calls are limited even when hostname
// resolution was bypassed; the resolved tenant is the fallback.
func AdmissionMiddleware(limiter *admission.Limiter, directory tenant.Directory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meta := admission.ExtractMeta(r)
			rec := tenant.FromContext(r.Context())

			tenantID := meta.WorkspaceID
			tier := tenant.TierFree
			switch {
			case tenantID == "" && rec != nil:
				tenantID = rec.ID
				tier = rec.RateTier
			case tenantID != "" && rec != nil && tenantID == rec.ID:
				tier = rec.RateTier
			case tenantID != "":
				// Header-routed caller naming a different workspace; look
				// its tier up, defaulting to free when unknown.
				if other, found, err := directory.LookupByID(r.Context(), tenantID); err == nil && found {
					tier = other.RateTier
				}
			}
			if tenantID == "" {
				// No tenant identity at all: free-tier limit keyed to the
				// anonymous bucket.
				tenantID = "anonymous"
			}

			verdict := limiter.Admit(r.Context(), tenantID, tier, meta.Cost)
			if !verdict.Allowed {
				AddLogField(r.Context(), "admission", "rejected")
				logger.Info("request rejected by admission control",
					slog.String("tenant_id", tenantID),
					slog.Int("cost", meta.Cost),
					slog.Int64("limit", verdict.Limit),
				)
				writeRateLimited(w, rateLimitVerdict{Limit: verdict.Limit, RetryAfter: verdict.RetryAfter})
				return
			}

			SetRateLimits(r.Context(), verdict.Limit, verdict.Remaining)
			next.ServeHTTP(w, r)
		})
	}
}
