// Package metrics exposes Prometheus instrumentation for every gateway
// pipeline stage. The counters are the observer hooks the pipeline invokes
// synchronously at its decision points.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds all Prometheus metrics for the request pipeline.
type GatewayMetrics struct {
	Resolutions     *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	GateOutcomes    *prometheus.CounterVec
	BotRequests     prometheus.Counter
	OriginVerdicts  *prometheus.CounterVec
	AdmissionTotals *prometheus.CounterVec
}

// New initializes and registers the gateway metrics on a registerer.
// Tests pass their own registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)
	return &GatewayMetrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_gateway",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Hostname resolutions by outcome.",
		}, []string{"outcome"}), // outcome: resolved, not_found, error
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront_gateway",
			Subsystem: "resolver",
			Name:      "cache_hits_total",
			Help:      "Resolution cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront_gateway",
			Subsystem: "resolver",
			Name:      "cache_misses_total",
			Help:      "Resolution cache misses.",
		}),
		GateOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_gateway",
			Subsystem: "gate",
			Name:      "outcomes_total",
			Help:      "Password gate outcomes.",
		}, []string{"outcome"}), // outcome: bypass, unlocked, locked, unlock_ok, unlock_fail
		BotRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront_gateway",
			Subsystem: "bot",
			Name:      "requests_total",
			Help:      "Requests classified as crawler traffic.",
		}),
		OriginVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_gateway",
			Subsystem: "origin_trust",
			Name:      "verdicts_total",
			Help:      "Origin-trust verification verdicts.",
		}, []string{"verdict"}), // verdict: verified, rejected, ip_limited
		AdmissionTotals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_gateway",
			Subsystem: "admission",
			Name:      "requests_total",
			Help:      "Admission controller decisions.",
		}, []string{"outcome"}), // outcome: allowed, rejected, store_error
	}
}

// ResolutionCacheHit implements tenant.ResolverMetrics.
func (m *GatewayMetrics) ResolutionCacheHit() { m.CacheHits.Inc() }

// ResolutionCacheMiss implements tenant.ResolverMetrics.
func (m *GatewayMetrics) ResolutionCacheMiss() { m.CacheMisses.Inc() }

// Resolution implements tenant.ResolverMetrics.
func (m *GatewayMetrics) Resolution(outcome string) {
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// Admission implements admission.LimiterMetrics.
func (m *GatewayMetrics) Admission(outcome string) {
	m.AdmissionTotals.WithLabelValues(outcome).Inc()
}
