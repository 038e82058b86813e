// Package origintrust proves that a request for a protected data endpoint
// arrived through the trusted CDN edge rather than directly from the public
// internet.
package origintrust

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the edge proof: "<unix_ts>:<hex_hmac_sha256>".
const SignatureHeader = "X-Hz-Internal"

// InternalTokenHeader carries the simpler shared-secret gate for purely
// internal endpoints. Exact match, no timestamp.
const InternalTokenHeader = "X-Internal-Token"

// MaxClockSkew bounds |now - timestamp|; older or newer signatures are
// rejected to close the replay window.
const MaxClockSkew = 300 * time.Second

// Verifier checks signed-origin headers against the shared edge secret.
type Verifier struct {
	secret  []byte
	enforce bool
	// now is swappable so tests can pin the replay window.
	now func() time.Time
}

// NewVerifier creates a verifier. When enforce is false an absent header is
// accepted, which is only intended for local development; the caller is
// expected to log that mode at startup.
func NewVerifier(secret string, enforce bool) *Verifier {
	return &Verifier{secret: []byte(secret), enforce: enforce, now: time.Now}
}

// SetClock overrides the verifier's time source. Test use only.
func (v *Verifier) SetClock(now func() time.Time) { v.now = now }

// Enforcing reports whether absent headers are rejected.
func (v *Verifier) Enforcing() bool { return v.enforce }

// Verify checks a signature header against the request path. An empty
// header passes only when enforcement is off.
func (v *Verifier) Verify(signatureHeader, requestPath string) bool {
	if signatureHeader == "" {
		return !v.enforce
	}

	tsPart, sigPart, found := strings.Cut(signatureHeader, ":")
	if !found || tsPart == "" || sigPart == "" {
		return false
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return false
	}
	skew := v.now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(MaxClockSkew/time.Second) {
		return false
	}

	expected := Sign(v.secret, ts, requestPath)
	// Constant-time compare over the hex strings; length mismatch is an
	// immediate reject.
	if len(sigPart) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sigPart), []byte(expected)) == 1
}

// Sign computes the hex HMAC-SHA256 the edge attaches for a path at a given
// timestamp. Exported for edge tooling and tests.
func Sign(secret []byte, unixTS int64, requestPath string) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d:%s", unixTS, requestPath)
	return hex.EncodeToString(mac.Sum(nil))
}

// Header renders a complete signature header value for a path, timestamped
// now. Used by the edge-facing signing helper and tests.
func Header(secret []byte, unixTS int64, requestPath string) string {
	return fmt.Sprintf("%d:%s", unixTS, Sign(secret, unixTS, requestPath))
}

// TokenGate is the exact-match internal bearer check.
type TokenGate struct {
	token   []byte
	enforce bool
}

// NewTokenGate creates the internal-token gate. As with the verifier,
// enforce=false accepts absent tokens for local development.
func NewTokenGate(token string, enforce bool) *TokenGate {
	return &TokenGate{token: []byte(token), enforce: enforce}
}

// Allow checks a presented token. Absent tokens pass only when enforcement
// is off; a configured-but-empty secret never matches.
func (g *TokenGate) Allow(presented string) bool {
	if presented == "" {
		return !g.enforce
	}
	if len(g.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), g.token) == 1
}
