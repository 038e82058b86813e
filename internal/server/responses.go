package server

import (
	"encoding/json"
	"net/http"
)

// errorBody is the structured JSON shape of every terminal response. It
// deliberately carries no backend detail: unknown-tenant and access-denied
// responses must not leak which hostnames exist or why a check failed.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeStoreNotFound is the fail-closed terminal for unresolvable
// hostnames. One generic page for every unknown host.
func writeStoreNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "store_not_found", "store not found")
}

func writeForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden", "forbidden")
}

func writeRateLimited(w http.ResponseWriter, verdict rateLimitVerdict) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", itoa(verdict.RetryAfter))
	w.Header().Set("X-RateLimit-Limit", itoa64(verdict.Limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Code:       "rate_limited",
		Message:    "request quota exceeded",
		RetryAfter: verdict.RetryAfter,
	}})
}

// rateLimitVerdict mirrors admission.Verdict for response writing without
// importing the admission package here.
type rateLimitVerdict struct {
	Limit      int64
	RetryAfter int
}
