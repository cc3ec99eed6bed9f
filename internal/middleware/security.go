package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"parkingapp/internal/backend"
	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/infrastructure"
	"parkingapp/internal/security"
	"parkingapp/internal/store"
)

// SessionHeader lets a client without a bearer token identify its
// anonymous session to the security oracle.
const SessionHeader = "X-Session-ID"

// BearerToken returns the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ClientIdentity records who is calling on the request context. The
// security oracle keys its budgets on it and the backend client forwards the
// bearer token. Raw tokens never become identifiers; the session id is a hash.
func ClientIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := infrastructure.ClientIdentity{
			IP:        GetRealIP(r),
			UserAgent: r.UserAgent(),
			SessionID: strings.TrimSpace(r.Header.Get(SessionHeader)),
		}

		if token := BearerToken(r); token != "" {
			ctx = backend.WithToken(ctx, token)
			id.SessionID = "tok-" + security.HashIdentifier(token)
		}

		ctx = infrastructure.WithClientIdentity(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionLookup finds the state store of a signed-in session
type SessionLookup interface {
	Lookup(token string) (*store.Store, bool)
}

// RequireSession rejects requests whose bearer token does not belong to an
// open session. Admitted requests carry that session's store on the context.
func RequireSession(sessions SessionLookup, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := backend.TokenFrom(ctx)
			var st *store.Store
			ok := false
			if sessions != nil {
				st, ok = sessions.Lookup(token)
			}
			if !ok {
				reason := "unknown session"
				if token == "" {
					reason = "missing session token"
				}
				logger.InfoContext(ctx, reason,
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				writeProblem(w, r, http.StatusUnauthorized, apierrors.TypeUnauthorized,
					"Unauthorized", "Please sign in to continue.")
				return
			}
			next.ServeHTTP(w, r.WithContext(store.WithStore(ctx, st)))
		})
	}
}

// SecureHeaders provides configurable security headers
type SecureHeaders struct {
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	ContentSecurityPolicy string
	XFrameOptions         string
	XContentTypeOptions   string
	ReferrerPolicy        string
	PermissionsPolicy     string

	// DevMode relaxes the CSP and sends HSTS over plain HTTP
	DevMode bool
}

// DefaultSecureHeaders returns secure headers with default settings
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:            63072000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// Handler returns the middleware handler
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		if sh.HSTSMaxAge > 0 && (r.TLS != nil || sh.DevMode) {
			hsts := fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
			if sh.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			h.Set("Strict-Transport-Security", hsts)
		}

		csp := sh.ContentSecurityPolicy
		if csp == "" {
			csp = sh.defaultCSP()
		}
		h.Set("Content-Security-Policy", csp)

		if sh.XFrameOptions != "" {
			h.Set("X-Frame-Options", sh.XFrameOptions)
		}
		if sh.XContentTypeOptions != "" {
			h.Set("X-Content-Type-Options", sh.XContentTypeOptions)
		}
		if sh.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", sh.ReferrerPolicy)
		}

		pp := sh.PermissionsPolicy
		if pp == "" {
			pp = "camera=(), geolocation=(), microphone=(), usb=(), interest-cohort=()"
		}
		h.Set("Permissions-Policy", pp)
		h.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// defaultCSP locks a JSON API down to nothing. DevMode allows the local
// console page to load scripts from itself.
func (sh *SecureHeaders) defaultCSP() string {
	if sh.DevMode {
		return "default-src 'self'; connect-src 'self' ws: wss:; img-src 'self' data:"
	}
	return "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"
}

// AuditLog records every state-changing request with the caller's identity
// key. Reads pass through unlogged.
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(r.Context(), "audit",
				slog.String("event_type", "mutation"),
				slog.String("client", infrastructure.ClientIdentityFrom(r.Context()).Key()),
				slog.String("method", r.Method),
				slog.String("route", getRoutePattern(r)),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
