// Package bot classifies requests as crawler traffic from the User-Agent.
// Classification never blocks a request; it only annotates it so response
// shaping and observability can react.
package bot

import (
	"context"
	"strings"
)

// signatures are matched case-insensitively as substrings. The table covers
// search, social and performance crawlers seen against hosted storefronts.
var signatures = []string{
	"googlebot",
	"bingbot",
	"duckduckbot",
	"yandex",
	"baiduspider",
	"twitterbot",
	"facebookexternalhit",
	"linkedinbot",
	"pinterestbot",
	"slackbot",
	"whatsapp",
	"telegrambot",
	"applebot",
	"lighthouse",
	"chrome-lighthouse",
	"pagespeed",
	"gtmetrix",
	"headlesschrome",
	"ahrefsbot",
	"semrushbot",
	"petalbot",
	"bytespider",
	"mj12bot",
}

// Classify reports whether the User-Agent belongs to a known crawler.
func Classify(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, sig := range signatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}

type contextKey struct{}

// WithClassification annotates the context with the crawler verdict.
func WithClassification(ctx context.Context, isBot bool) context.Context {
	return context.WithValue(ctx, contextKey{}, isBot)
}

// FromContext reports the crawler verdict for this request. Defaults to
// false when classification has not run.
func FromContext(ctx context.Context) bool {
	isBot, _ := ctx.Value(contextKey{}).(bool)
	return isBot
}
