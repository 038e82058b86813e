// Package gate implements password protection for storefronts. A locked
// storefront renders an unlock form instead of its pages; the form itself
// is served with HTTP 200 because the page is the product, not an error.
package gate

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hzplatform/storefront-gateway/internal/session"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

// State is the per-request gate decision.
type State int

const (
	// Bypass skips gating for infrastructure and API paths.
	Bypass State = iota
	Unlocked
	Locked
)

// UnlockPath receives password submissions. It is always on the bypass
// list so the form can be submitted while locked.
const UnlockPath = "/password"

// bypassPrefixes are infrastructure paths that must stay reachable while a
// storefront is locked.
var bypassPrefixes = []string{
	UnlockPath,
	"/admin",
	"/static",
	"/assets",
	"/internal",
	"/healthz",
	"/metrics",
}

// Bypassed reports whether a path skips the gate entirely.
func Bypassed(path string) bool {
	for _, prefix := range bypassPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// StateFor runs the gate state machine for one request.
func StateFor(r *http.Request, rec *tenant.Record, sessions session.Store) State {
	if Bypassed(r.URL.Path) {
		return Bypass
	}
	if !rec.PasswordProtected {
		return Unlocked
	}
	if sessions.Unlocked(r, rec.ID) {
		return Unlocked
	}
	return Locked
}

// VerifyPassword compares a submitted password against the stored bcrypt
// hash. An empty hash never matches.
func VerifyPassword(passwordHash, password string) bool {
	if passwordHash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}

// HashPassword produces a bcrypt hash for provisioning and tests.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
