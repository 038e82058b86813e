// Package session tracks which storefronts a browser has unlocked after a
// successful password entry. Absence of a session means locked.
package session

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName carries the signed unlock token. Cookies are scoped per host,
// so one token names exactly one tenant.
const CookieName = "hz_unlock"

// DefaultTTL bounds how long an unlock survives without re-entering the
// password.
const DefaultTTL = 24 * time.Hour

// Store records and checks unlock state for a (tenant, browser) pair.
type Store interface {
	// Unlocked reports whether the request carries a valid unlock for the
	// tenant.
	Unlocked(r *http.Request, tenantID string) bool
	// Unlock marks the tenant unlocked for the requesting browser. It is
	// only called after the password check fully succeeds.
	Unlock(w http.ResponseWriter, r *http.Request, tenantID string) error
}

// CookieStore implements Store with an HS256-signed JWT cookie, so unlock
// state needs no server-side storage and survives gateway restarts.
type CookieStore struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewCookieStore creates a cookie-backed session store. secure controls the
// cookie's Secure attribute and should be true whenever TLS terminates in
// front of the gateway.
func NewCookieStore(secret string, ttl time.Duration, secure bool) *CookieStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CookieStore{secret: []byte(secret), ttl: ttl, secure: secure}
}

func (s *CookieStore) Unlocked(r *http.Request, tenantID string) bool {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	return claims.Subject == tenantID
}

func (s *CookieStore) Unlock(w http.ResponseWriter, r *http.Request, tenantID string) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   tenantID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign unlock token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// MemoryStore is a Store for tests, keyed by tenant ID alone.
type MemoryStore struct {
	mu       sync.Mutex
	unlocked map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{unlocked: make(map[string]bool)}
}

func (s *MemoryStore) Unlocked(r *http.Request, tenantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked[tenantID]
}

func (s *MemoryStore) Unlock(w http.ResponseWriter, r *http.Request, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked[tenantID] = true
	return nil
}
