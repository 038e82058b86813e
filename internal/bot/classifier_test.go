package bot

import (
	"context"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      bool
	}{
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true},
		{"bingbot", "Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)", true},
		{"twitterbot", "Twitterbot/1.0", true},
		{"facebook", "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", true},
		{"lighthouse", "Mozilla/5.0 (X11; Linux x86_64) Chrome-Lighthouse", true},
		{"headless", "Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/119.0.0.0", true},
		{"case insensitive", "GOOGLEBOT/2.1", true},
		{"chrome", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", false},
		{"firefox", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", false},
		{"curl", "curl/8.4.0", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.userAgent); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.userAgent, got, tt.want)
			}
		})
	}
}

func TestClassificationContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) {
		t.Error("unclassified context defaults to non-bot")
	}
	if !FromContext(WithClassification(ctx, true)) {
		t.Error("bot annotation should survive the context round trip")
	}
	if FromContext(WithClassification(ctx, false)) {
		t.Error("non-bot annotation should survive the context round trip")
	}
}
