package gate

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hzplatform/storefront-gateway/internal/session"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

func TestBypassed(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/password", true},
		{"/admin", true},
		{"/admin/settings", true},
		{"/static/app.css", true},
		{"/assets/logo.png", true},
		{"/internal/storefront-data", true},
		{"/healthz", true},
		{"/metrics", true},
		{"/", false},
		{"/products/sneaker", false},
		{"/administrator", false}, // prefix must match on a path boundary
		{"/passwords", false},
	}
	for _, tt := range tests {
		if got := Bypassed(tt.path); got != tt.want {
			t.Errorf("Bypassed(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestStateFor(t *testing.T) {
	hash, err := HashPassword("open sesame")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	protected := &tenant.Record{ID: "ws_1", PasswordProtected: true, PasswordHash: hash}
	open := &tenant.Record{ID: "ws_2"}

	sessions := session.NewMemoryStore()

	req := httptest.NewRequest("GET", "/products", nil)

	if got := StateFor(req, open, sessions); got != Unlocked {
		t.Errorf("unprotected store: state = %v, want Unlocked", got)
	}
	if got := StateFor(req, protected, sessions); got != Locked {
		t.Errorf("protected store without session: state = %v, want Locked", got)
	}

	bypassReq := httptest.NewRequest("GET", "/static/app.css", nil)
	if got := StateFor(bypassReq, protected, sessions); got != Bypass {
		t.Errorf("bypass path: state = %v, want Bypass", got)
	}

	// Unlocking flips the state for subsequent requests.
	rec := httptest.NewRecorder()
	if err := sessions.Unlock(rec, req, "ws_1"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if got := StateFor(req, protected, sessions); got != Unlocked {
		t.Errorf("protected store with session: state = %v, want Unlocked", got)
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !VerifyPassword(hash, "correct horse") {
		t.Error("correct password must verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password must not verify")
	}
	if VerifyPassword(hash, "") {
		t.Error("empty password must not verify")
	}
	if VerifyPassword("", "correct horse") {
		t.Error("empty hash must never verify")
	}
}

func TestRenderForm(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderForm(rec, FormData{
		StoreName:   "Shoe Store",
		Description: "Opening soon",
		ReturnTo:    "/products?page=2",
		Error:       "Incorrect password. Please try again.",
	})

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200 (the locked page is the product)", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Shoe Store", "Opening soon", "/products?page=2", "Incorrect password"} {
		if !strings.Contains(body, want) {
			t.Errorf("form body missing %q", want)
		}
	}
	if !strings.Contains(body, `name="robots" content="noindex"`) {
		t.Error("locked page should be marked noindex")
	}
}
