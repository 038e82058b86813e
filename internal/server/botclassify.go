package server

import (
	"fmt"
	"net/http"

	"github.com/hzplatform/storefront-gateway/internal/bot"
	"github.com/hzplatform/storefront-gateway/internal/metrics"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

// BotClassifyMiddleware tags crawler traffic. It never blocks: crawlers get
// an explicit X-Robots-Tag, every storefront response gets a canonical URL
// Link header pointing at the tenant's primary hostname, and the verdict is
// annotated for downstream shaping and the request log.
func BotClassifyMiddleware(rootDomain, canonicalScheme string, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isBot := bot.Classify(r.UserAgent())

			if rec := tenant.FromContext(r.Context()); rec != nil {
				canonical := fmt.Sprintf("%s://%s%s", canonicalScheme, rec.PrimaryHostname(rootDomain), r.URL.Path)
				w.Header().Set("Link", fmt.Sprintf("<%s>; rel=\"canonical\"", canonical))
			}

			if isBot {
				w.Header().Set("X-Robots-Tag", "index, follow")
				AddLogField(r.Context(), "bot", "true")
				if m != nil {
					m.BotRequests.Inc()
				}
			}

			ctx := bot.WithClassification(r.Context(), isBot)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
