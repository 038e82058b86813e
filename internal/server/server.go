package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hzplatform/storefront-gateway/internal/admission"
	"github.com/hzplatform/storefront-gateway/internal/config"
	"github.com/hzplatform/storefront-gateway/internal/gate"
	"github.com/hzplatform/storefront-gateway/internal/metrics"
	"github.com/hzplatform/storefront-gateway/internal/origintrust"
	"github.com/hzplatform/storefront-gateway/internal/session"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

// StorefrontDataPath is the internal data-serving endpoint reachable only
// through the CDN edge.
const StorefrontDataPath = "/internal/storefront-data"

// Options bundles the gateway's collaborators for assembly.
type Options struct {
	Config    *config.Config
	Resolver  *tenant.Resolver
	Directory tenant.Directory
	Sessions  session.Store
	Limiter   *admission.Limiter
	Verifier  *origintrust.Verifier
	IPLimiter *origintrust.IPLimiter
	TokenGate *origintrust.TokenGate
	Metrics   *metrics.GatewayMetrics
	Logger    *slog.Logger
	// Business is the opaque storefront handler behind the pipeline. Nil
	// installs a small passthrough placeholder.
	Business http.Handler
}

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	http   *http.Server
}

// New assembles the gateway pipeline. Stage order is fixed: resolution,
// access gate, bot classification, origin trust (data endpoints only),
// admission.
func New(opts Options) *Server {
	r := chi.NewRouter()
	logger := opts.Logger

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "storefront-gateway")
	})
	r.Use(middleware.Recoverer)
	r.Use(TimeoutMiddleware(opts.Config.Server.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	business := opts.Business
	if business == nil {
		business = storefrontPlaceholder(opts.Config.Platform.RootDomain)
	}

	// Tenant-scoped routes: every request below here carries a resolved
	// tenant or has already been terminated.
	r.Group(func(r chi.Router) {
		r.Use(ResolveTenantMiddleware(opts.Resolver, logger))
		r.Use(AccessGateMiddleware(opts.Sessions, opts.Metrics))
		r.Use(BotClassifyMiddleware(opts.Config.Platform.RootDomain, opts.Config.Platform.CanonicalScheme, opts.Metrics))
		r.Use(RateLimitHeaderMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(OriginTrustMiddleware(opts.Verifier, opts.IPLimiter, opts.Config.Security.SharedCacheTTL, opts.Config.Security.StaleGrace, opts.Metrics))
			r.Use(AdmissionMiddleware(opts.Limiter, opts.Directory, logger))
			r.Get(StorefrontDataPath, storefrontDataHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(InternalTokenMiddleware(opts.TokenGate))
			r.Post("/internal/resolver/invalidate", invalidateHandler(opts.Resolver))
		})

		r.Group(func(r chi.Router) {
			r.Use(AdmissionMiddleware(opts.Limiter, opts.Directory, logger))
			r.Post(gate.UnlockPath, UnlockHandler(opts.Sessions, logger, opts.Metrics))
			r.Handle("/*", business)
		})
	})

	return &Server{
		Router: r,
		Port:   opts.Config.Server.Port,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// storefrontPlaceholder stands in for the theme/rendering service, which
// is outside the gateway's scope. It proves the pipeline passed a request
// through with the tenant attached.
func storefrontPlaceholder(rootDomain string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := tenant.FromContext(r.Context())
		if rec == nil {
			writeStoreNotFound(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"store":    rec.Name,
			"hostname": rec.PrimaryHostname(rootDomain),
		})
	})
}

// storefrontDataHandler serves the edge-cached tenant data document.
func storefrontDataHandler(w http.ResponseWriter, r *http.Request) {
	rec := tenant.FromContext(r.Context())
	if rec == nil {
		writeStoreNotFound(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tenant_id":          rec.ID,
		"name":               rec.Name,
		"description":        rec.Description,
		"password_protected": rec.PasswordProtected,
	})
}

// invalidateHandler drops a hostname from the resolution cache ahead of its
// TTL, for provisioning flows that just changed a domain mapping.
func invalidateHandler(resolver *tenant.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostname := r.URL.Query().Get("hostname")
		if hostname == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "hostname query parameter required")
			return
		}
		resolver.Invalidate(hostname)
		w.WriteHeader(http.StatusNoContent)
	}
}
