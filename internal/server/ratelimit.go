package server

import (
	"context"
	"net/http"
)

// rateLimitContextKey is the context key for rate limit info
type rateLimitContextKey struct{}

// RateLimitInfo carries the admission verdict for header emission, so
// clients can self-throttle before they are rejected. It is installed
// empty by RateLimitHeaderMiddleware and filled in place by the admission
// stage, mirroring how LoggingMiddleware's field map works.
type RateLimitInfo struct {
	Limit     int64
	Remaining int64
}

// SetRateLimits fills the request's rate limit info for the header
// middleware to emit. No-op if the middleware isn't present.
func SetRateLimits(ctx context.Context, limit, remaining int64) {
	if rl, ok := ctx.Value(rateLimitContextKey{}).(*RateLimitInfo); ok {
		rl.Limit = limit
		rl.Remaining = remaining
	}
}

// GetRateLimits retrieves rate limit info from context.
// Returns nil if the header middleware isn't present.
func GetRateLimits(ctx context.Context) *RateLimitInfo {
	if rl, ok := ctx.Value(rateLimitContextKey{}).(*RateLimitInfo); ok {
		return rl
	}
	return nil
}

// RateLimitHeaderMiddleware writes X-RateLimit-* headers on responses.
// The verdict is filled by the admission stage downstream; the headers are
// written lazily, just before the first body byte or status line.
func RateLimitHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := &RateLimitInfo{}
		ctx := context.WithValue(r.Context(), rateLimitContextKey{}, rl)
		wrapped := &rateLimitResponseWriter{
			ResponseWriter: w,
			info:           rl,
		}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// rateLimitResponseWriter wraps ResponseWriter to write rate limit headers.
type rateLimitResponseWriter struct {
	http.ResponseWriter
	info         *RateLimitInfo
	wroteHeaders bool
}

func (rw *rateLimitResponseWriter) WriteHeader(code int) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *rateLimitResponseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *rateLimitResponseWriter) writeRateLimitHeaders() {
	if rw.info == nil || rw.info.Limit <= 0 {
		return
	}

	h := rw.Header()
	h.Set("X-RateLimit-Limit", itoa64(rw.info.Limit))
	// 0 is a valid remaining value once limit info exists
	h.Set("X-RateLimit-Remaining", itoa64(rw.info.Remaining))
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (rw *rateLimitResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// itoa converts int to string without importing strconv
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)

	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}

func itoa64(i int64) string {
	return itoa(int(i))
}
