package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds how long a storefront request may spend in the
// pipeline and the business handler behind it. The deadline is carried on
// the context; handlers observe it cooperatively via context.Done() rather
// than being forcibly terminated, so a slow directory or counter-store call
// aborts instead of holding the connection. A non-positive timeout disables
// the bound.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
