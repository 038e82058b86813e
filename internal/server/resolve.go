package server

import (
	"log/slog"
	"net/http"

	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

// ResolveTenantMiddleware maps the request hostname to a tenant and injects
// it into the context. It is the leaf stage: everything downstream depends
// on its output.
//
// Unresolvable hostnames terminate with a generic 404. Requests must never
// fall through to shared routing without a tenant. A directory failure is
// also a 404: serving the wrong tenant's data would be worse than an outage
// page.
//
// Vary: Host is set unconditionally so an HTTP cache in front of the
// gateway can never serve one tenant's response for another's hostname.
func ResolveTenantMiddleware(resolver *tenant.Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Host")

			hostname := resolver.HostnameFromRequest(r)
			AddLogField(r.Context(), "hostname", hostname)

			rec, found, err := resolver.Resolve(r.Context(), hostname)
			if err != nil {
				logger.Error("tenant resolution failed",
					slog.String("hostname", hostname),
					slog.String("error", err.Error()),
				)
				AddError(r.Context(), err)
				writeStoreNotFound(w)
				return
			}
			if !found {
				writeStoreNotFound(w)
				return
			}

			AddLogField(r.Context(), "tenant_id", rec.ID)
			ctx := tenant.WithRecord(r.Context(), rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
