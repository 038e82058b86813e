package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"

	"github.com/hzplatform/storefront-gateway/internal/metrics"
	"github.com/hzplatform/storefront-gateway/internal/origintrust"
)

// OriginTrustMiddleware protects internal data-serving endpoints from
// direct scraping. The request must carry a valid edge signature (unless
// enforcement is off) and stay inside the per-IP window. Verified responses
// get shared-cache headers and a content-hash ETag; the fronting cache can
// then serve stale-while-revalidate safely because Vary: Host already keys
// the cache per tenant.
func OriginTrustMiddleware(verifier *origintrust.Verifier, ipLimiter *origintrust.IPLimiter, sharedCacheTTL, staleGrace int, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := r.Header.Get(origintrust.SignatureHeader)
			if !verifier.Verify(sig, r.URL.Path) {
				if m != nil {
					m.OriginVerdicts.WithLabelValues("rejected").Inc()
				}
				AddLogField(r.Context(), "origin_trust", "rejected")
				writeForbidden(w)
				return
			}

			if !ipLimiter.Allow(r.Context(), clientIP(r)) {
				if m != nil {
					m.OriginVerdicts.WithLabelValues("ip_limited").Inc()
				}
				AddLogField(r.Context(), "origin_trust", "ip_limited")
				writeRateLimited(w, rateLimitVerdict{Limit: 60, RetryAfter: 60})
				return
			}

			if m != nil {
				m.OriginVerdicts.WithLabelValues("verified").Inc()
			}

			// Buffer the response so the ETag can be computed from the
			// final body before any header is flushed.
			buf := &etagResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(buf, r)

			if buf.statusCode == http.StatusOK {
				sum := sha256.Sum256(buf.body.Bytes())
				w.Header().Set("ETag", fmt.Sprintf("%q", hex.EncodeToString(sum[:16])))
				w.Header().Set("Cache-Control", fmt.Sprintf(
					"public, max-age=0, s-maxage=%d, stale-while-revalidate=%d",
					sharedCacheTTL, staleGrace,
				))
			}
			w.WriteHeader(buf.statusCode)
			_, _ = w.Write(buf.body.Bytes())
		})
	}
}

// InternalTokenMiddleware is the simpler bearer-style gate for purely
// internal endpoints: exact shared-secret match, no timestamp.
func InternalTokenMiddleware(tokenGate *origintrust.TokenGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokenGate.Allow(r.Header.Get(origintrust.InternalTokenHeader)) {
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// etagResponseWriter buffers the body and captures the status so headers
// can still be amended after the handler runs.
type etagResponseWriter struct {
	http.ResponseWriter
	body       bytes.Buffer
	statusCode int
}

func (rw *etagResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
}

func (rw *etagResponseWriter) Write(b []byte) (int, error) {
	return rw.body.Write(b)
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
