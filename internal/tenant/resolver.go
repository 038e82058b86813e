package tenant

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// HostOverrideHeader lets reverse-proxied or cross-origin theme requests
	// name the storefront explicitly, ahead of the Host header.
	HostOverrideHeader = "X-Store-Hostname"

	// DebugHostParam is honored only outside production, so a local client
	// can hit a storefront without DNS.
	DebugHostParam = "store"

	DefaultCacheTTL  = 60 * time.Second
	DefaultCacheSize = 1000
)

// ResolverMetrics receives resolution outcomes. Implementations must be
// safe for concurrent use; a nil receiver disables reporting.
type ResolverMetrics interface {
	ResolutionCacheHit()
	ResolutionCacheMiss()
	Resolution(outcome string)
}

// Resolver maps request hostnames to tenant records through a bounded TTL
// cache in front of the directory.
type Resolver struct {
	dir        Directory
	cache      *expirable.LRU[string, *Record]
	rootSuffix string
	production bool
	logger     *slog.Logger
	metrics    ResolverMetrics
}

// ResolverOptions configures a Resolver. Zero values fall back to defaults.
type ResolverOptions struct {
	RootDomain string
	Production bool
	CacheTTL   time.Duration
	CacheSize  int
	Metrics    ResolverMetrics
}

// NewResolver creates a resolver backed by the given directory.
func NewResolver(dir Directory, logger *slog.Logger, opts ResolverOptions) *Resolver {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Resolver{
		dir:        dir,
		cache:      expirable.NewLRU[string, *Record](size, nil, ttl),
		rootSuffix: "." + strings.ToLower(opts.RootDomain),
		production: opts.Production,
		logger:     logger.With(slog.String("component", "tenant_resolver")),
		metrics:    opts.Metrics,
	}
}

// Resolve maps a hostname to its tenant record. A cache hit referencing a
// tenant that has since gone inactive is treated as a miss and re-queried,
// so deactivation takes effect within one TTL window at worst.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (*Record, bool, error) {
	hostname = normalizeHostname(hostname)
	if hostname == "" {
		return nil, false, nil
	}

	if rec, ok := r.cache.Get(hostname); ok {
		if rec.Active() {
			if r.metrics != nil {
				r.metrics.ResolutionCacheHit()
			}
			return rec, true, nil
		}
		r.cache.Remove(hostname)
	}
	if r.metrics != nil {
		r.metrics.ResolutionCacheMiss()
	}

	rec, ok, err := r.lookup(ctx, hostname)
	if err != nil {
		if r.metrics != nil {
			r.metrics.Resolution("error")
		}
		return nil, false, err
	}
	if !ok || !rec.Active() {
		if r.metrics != nil {
			r.metrics.Resolution("not_found")
		}
		return nil, false, nil
	}

	r.cache.Add(hostname, rec)
	if r.metrics != nil {
		r.metrics.Resolution("resolved")
	}
	return rec, true, nil
}

// lookup applies the resolution order: verified custom domain, then a
// platform subdomain label, then (development only) the bare label itself.
func (r *Resolver) lookup(ctx context.Context, hostname string) (*Record, bool, error) {
	rec, ok, err := r.dir.LookupByCustomHostname(ctx, hostname)
	if err != nil || ok {
		return rec, ok, err
	}

	if label, found := strings.CutSuffix(hostname, r.rootSuffix); found && label != "" {
		rec, ok, err = r.dir.LookupBySubdomain(ctx, label)
		if err != nil || ok {
			return rec, ok, err
		}
	}

	if !r.production {
		return r.dir.LookupBySubdomain(ctx, hostname)
	}
	return nil, false, nil
}

// Invalidate drops a hostname from the cache, for callers that learn about
// a directory change before the TTL elapses.
func (r *Resolver) Invalidate(hostname string) {
	r.cache.Remove(normalizeHostname(hostname))
}

// HostnameFromRequest extracts the storefront hostname, first non-empty of:
// the explicit override header, X-Forwarded-Host (first value), the debug
// query parameter (non-production only), and the standard Host header.
func (r *Resolver) HostnameFromRequest(req *http.Request) string {
	if h := req.Header.Get(HostOverrideHeader); h != "" {
		return normalizeHostname(h)
	}
	if fwd := req.Header.Get("X-Forwarded-Host"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return normalizeHostname(first)
		}
	}
	if !r.production {
		if h := req.URL.Query().Get(DebugHostParam); h != "" {
			return normalizeHostname(h)
		}
	}
	return normalizeHostname(req.Host)
}

// normalizeHostname lowercases and strips any port.
func normalizeHostname(hostname string) string {
	hostname = strings.TrimSpace(strings.ToLower(hostname))
	if host, _, err := net.SplitHostPort(hostname); err == nil {
		return host
	}
	return hostname
}
