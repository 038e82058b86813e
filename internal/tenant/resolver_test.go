package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func seedDirectory() *MemoryDirectory {
	d := NewMemoryDirectory()
	d.Put(&Record{
		ID:              "ws_shoes",
		Name:            "Shoe Store",
		Subdomain:       "shoe-store",
		SubdomainAlias:  "shoes",
		CustomHostnames: []string{"www.shoes.example"},
		Status:          StatusActive,
		RateTier:        TierPro,
	})
	d.Put(&Record{
		ID:        "ws_hats",
		Name:      "Hat Store",
		Subdomain: "hat-store",
		Status:    StatusActive,
		RateTier:  TierFree,
	})
	d.Put(&Record{
		ID:        "ws_closed",
		Name:      "Closed Store",
		Subdomain: "closed-store",
		Status:    StatusInactive,
	})
	return d
}

func newTestResolver(d Directory, production bool) *Resolver {
	return NewResolver(d, testLogger(), ResolverOptions{
		RootDomain: "platform.test",
		Production: production,
	})
}

func TestResolveCustomDomain(t *testing.T) {
	r := newTestResolver(seedDirectory(), true)

	rec, found, err := r.Resolve(context.Background(), "www.shoes.example")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !found {
		t.Fatal("expected custom domain to resolve")
	}
	if rec.ID != "ws_shoes" {
		t.Errorf("resolved wrong tenant: got %s", rec.ID)
	}
}

func TestResolvePlatformSubdomain(t *testing.T) {
	r := newTestResolver(seedDirectory(), true)

	tests := []struct {
		hostname string
		wantID   string
		found    bool
	}{
		{"shoe-store.platform.test", "ws_shoes", true},
		{"shoes.platform.test", "ws_shoes", true}, // alias
		{"HAT-STORE.PLATFORM.TEST", "ws_hats", true},
		{"hat-store.platform.test:8080", "ws_hats", true},
		{"closed-store.platform.test", "", false}, // inactive
		{"unknown.platform.test", "", false},
		{"totally-unknown.example.com", "", false},
		{"platform.test", "", false}, // bare root
		{"", "", false},
	}

	for _, tt := range tests {
		rec, found, err := r.Resolve(context.Background(), tt.hostname)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", tt.hostname, err)
		}
		if found != tt.found {
			t.Errorf("Resolve(%q) found = %v, want %v", tt.hostname, found, tt.found)
			continue
		}
		if found && rec.ID != tt.wantID {
			t.Errorf("Resolve(%q) = %s, want %s", tt.hostname, rec.ID, tt.wantID)
		}
	}
}

func TestResolveDevelopmentDirectMatch(t *testing.T) {
	d := seedDirectory()

	prod := newTestResolver(d, true)
	if _, found, _ := prod.Resolve(context.Background(), "shoe-store"); found {
		t.Error("bare subdomain must not resolve in production")
	}

	dev := newTestResolver(d, false)
	rec, found, err := dev.Resolve(context.Background(), "shoe-store")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !found || rec.ID != "ws_shoes" {
		t.Error("bare subdomain should resolve in development")
	}
}

func TestResolveCacheSelfHealsOnDeactivation(t *testing.T) {
	d := seedDirectory()
	r := newTestResolver(d, true)

	if _, found, _ := r.Resolve(context.Background(), "shoe-store.platform.test"); !found {
		t.Fatal("expected initial resolution to succeed")
	}

	// Flip the tenant inactive under the cache's feet. The cached snapshot
	// still says active, so the hit is trusted until the entry expires or
	// the directory change is observed via a miss.
	d.SetStatus("ws_shoes", StatusInactive)
	r.Invalidate("shoe-store.platform.test")

	if _, found, _ := r.Resolve(context.Background(), "shoe-store.platform.test"); found {
		t.Error("deactivated tenant must not resolve after invalidation")
	}
}

func TestResolveStaleCacheEntryTreatedAsMiss(t *testing.T) {
	d := seedDirectory()
	r := newTestResolver(d, true)

	// Warm the cache, then plant an inactive snapshot to simulate a stale
	// entry that outlived a deactivation.
	if _, found, _ := r.Resolve(context.Background(), "hat-store.platform.test"); !found {
		t.Fatal("expected resolution to succeed")
	}
	inactive := &Record{ID: "ws_hats", Subdomain: "hat-store", Status: StatusInactive}
	r.cache.Add("hat-store.platform.test", inactive)

	// The inactive hit must force a directory re-query, which still finds
	// the active record.
	rec, found, err := r.Resolve(context.Background(), "hat-store.platform.test")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !found || rec.Status != StatusActive {
		t.Error("stale inactive cache entry should have been re-queried")
	}
}

func TestResolveDirectoryErrorFailsClosed(t *testing.T) {
	r := newTestResolver(failingDirectory{}, true)

	_, found, err := r.Resolve(context.Background(), "anything.platform.test")
	if err == nil {
		t.Fatal("expected directory error to propagate")
	}
	if found {
		t.Error("directory outage must not resolve a tenant")
	}
}

type failingDirectory struct{}

func (failingDirectory) LookupByCustomHostname(context.Context, string) (*Record, bool, error) {
	return nil, false, errors.New("directory unavailable")
}
func (failingDirectory) LookupBySubdomain(context.Context, string) (*Record, bool, error) {
	return nil, false, errors.New("directory unavailable")
}
func (failingDirectory) LookupByID(context.Context, string) (*Record, bool, error) {
	return nil, false, errors.New("directory unavailable")
}

func TestHostnameFromRequestPrecedence(t *testing.T) {
	prod := newTestResolver(seedDirectory(), true)
	dev := newTestResolver(seedDirectory(), false)

	tests := []struct {
		name     string
		resolver *Resolver
		target   string
		host     string
		headers  map[string]string
		want     string
	}{
		{
			name:     "override header wins",
			resolver: prod,
			target:   "/",
			host:     "gateway.internal",
			headers:  map[string]string{"X-Store-Hostname": "www.shoes.example"},
			want:     "www.shoes.example",
		},
		{
			name:     "forwarded host first value",
			resolver: prod,
			target:   "/",
			host:     "gateway.internal",
			headers:  map[string]string{"X-Forwarded-Host": "shoe-store.platform.test, edge.internal"},
			want:     "shoe-store.platform.test",
		},
		{
			name:     "query param ignored in production",
			resolver: prod,
			target:   "/?store=shoe-store.platform.test",
			host:     "gateway.internal",
			want:     "gateway.internal",
		},
		{
			name:     "query param honored in development",
			resolver: dev,
			target:   "/?store=shoe-store.platform.test",
			host:     "gateway.internal",
			want:     "shoe-store.platform.test",
		},
		{
			name:     "host header fallback strips port",
			resolver: prod,
			target:   "/",
			host:     "Shoe-Store.Platform.Test:443",
			want:     "shoe-store.platform.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			req.Host = tt.host
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := tt.resolver.HostnameFromRequest(req); got != tt.want {
				t.Errorf("HostnameFromRequest = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveCacheExpiry(t *testing.T) {
	d := seedDirectory()
	r := NewResolver(d, testLogger(), ResolverOptions{
		RootDomain: "platform.test",
		Production: true,
		CacheTTL:   50 * time.Millisecond,
	})

	if _, found, _ := r.Resolve(context.Background(), "shoe-store.platform.test"); !found {
		t.Fatal("expected resolution to succeed")
	}
	d.SetStatus("ws_shoes", StatusInactive)

	// Within the TTL a stale active snapshot may still be served; after it
	// the next lookup must re-check the directory and fail.
	time.Sleep(80 * time.Millisecond)
	if _, found, _ := r.Resolve(context.Background(), "shoe-store.platform.test"); found {
		t.Error("expected deactivation to take effect after TTL expiry")
	}
}
