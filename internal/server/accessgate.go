package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hzplatform/storefront-gateway/internal/gate"
	"github.com/hzplatform/storefront-gateway/internal/metrics"
	"github.com/hzplatform/storefront-gateway/internal/session"
	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

// AccessGateMiddleware enforces storefront password protection. Locked
// requests terminate with the interactive unlock form; infrastructure
// paths and unprotected storefronts pass straight through.
func AccessGateMiddleware(sessions session.Store, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := tenant.FromContext(r.Context())
			if rec == nil {
				// Resolution did not run; fail closed.
				writeStoreNotFound(w)
				return
			}

			switch state := gate.StateFor(r, rec, sessions); state {
			case gate.Bypass:
				if m != nil {
					m.GateOutcomes.WithLabelValues("bypass").Inc()
				}
			case gate.Unlocked:
				if m != nil {
					m.GateOutcomes.WithLabelValues("unlocked").Inc()
				}
			case gate.Locked:
				if m != nil {
					m.GateOutcomes.WithLabelValues("locked").Inc()
				}
				AddLogField(r.Context(), "gate", "locked")
				gate.RenderForm(w, gate.FormData{
					StoreName:   rec.Name,
					Description: rec.Description,
					ReturnTo:    safeReturnPath(r.URL.RequestURI()),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UnlockHandler processes password submissions from the gate form. The
// session write happens only after the password check fully succeeds; a
// wrong password re-renders the form and never creates a session.
func UnlockHandler(sessions session.Store, logger *slog.Logger, m *metrics.GatewayMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := tenant.FromContext(r.Context())
		if rec == nil {
			writeStoreNotFound(w)
			return
		}

		returnTo := safeReturnPath(r.PostFormValue("return_to"))

		if !rec.PasswordProtected {
			// Protection was disabled between form render and submit.
			http.Redirect(w, r, returnTo, http.StatusSeeOther)
			return
		}

		password := r.PostFormValue("password")
		if !gate.VerifyPassword(rec.PasswordHash, password) {
			if m != nil {
				m.GateOutcomes.WithLabelValues("unlock_fail").Inc()
			}
			AddLogField(r.Context(), "gate", "unlock_fail")
			gate.RenderForm(w, gate.FormData{
				StoreName:   rec.Name,
				Description: rec.Description,
				ReturnTo:    returnTo,
				Error:       "Incorrect password. Please try again.",
			})
			return
		}

		if err := sessions.Unlock(w, r, rec.ID); err != nil {
			logger.Error("failed to create unlock session",
				slog.String("tenant_id", rec.ID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "internal", "something went wrong")
			return
		}

		if m != nil {
			m.GateOutcomes.WithLabelValues("unlock_ok").Inc()
		}
		AddLogField(r.Context(), "gate", "unlock_ok")
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
	}
}

// safeReturnPath constrains redirect targets to same-site paths so the
// unlock form cannot be used as an open redirect.
func safeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return "/"
	}
	return p
}
