package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	"parkingapp/internal/config"
	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/infrastructure"
	"parkingapp/internal/middleware"
	"parkingapp/internal/validation"
)

// RouterDeps collects what NewRouter mounts. Stream, Metrics, Tracer and
// BusinessMetrics may be nil.
type RouterDeps struct {
	Config *config.Config
	Logger *slog.Logger

	Auth      AuthService
	Tickets   TicketService
	Vehicles  VehicleService
	Users     UserService
	Validator FormValidator
	Gate      SecurityChecker
	Health    HealthService

	// Sessions resolves bearer tokens to their session's state
	Sessions middleware.SessionLookup

	// Stream serves the websocket state stream at /ws
	Stream http.Handler
	// Metrics serves the Prometheus scrape endpoint at /metrics
	Metrics http.Handler

	Tracer          trace.Tracer
	BusinessMetrics *infrastructure.BusinessMetrics
}

// NewRouter builds the gateway's routes and middleware chain.
//
// Order: RequestID → RealIP → OTel → StructuredLogger → Recoverer →
// SecureHeaders → CORS → RateLimiter → Timeout. The websocket route only
// gets RequestID, RealIP and the session check so nothing wraps the
// hijacked connection. Everything that reads or clears a session's state
// sits behind RequireSession.
func NewRouter(d RouterDeps) chi.Router {
	cfg := d.Config
	logger := d.Logger
	errorHandler := apierrors.NewErrorHandler(logger, cfg.Logging.Development)
	requests := middleware.NewRequestValidator(logger)

	r := chi.NewRouter()
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	requireSession := middleware.RequireSession(d.Sessions, logger)

	if d.Stream != nil {
		r.With(
			middleware.WebSocketTraceMiddleware(logger),
			middleware.ClientIdentity,
			requireSession,
		).Handle("/ws", d.Stream)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOTelMiddleware(d.Tracer, d.BusinessMetrics).Handler)
		r.Use(middleware.StructuredLogger(logger))
		r.Use(middleware.Recoverer(logger))

		headers := middleware.DefaultSecureHeaders()
		headers.DevMode = cfg.Logging.Development
		r.Use(headers.Handler)

		if cfg.Security.EnableCORS {
			r.Use(middleware.CORS(middleware.CORSConfig{
				AllowedOrigins: cfg.Security.AllowedOrigins,
				Logger:         logger,
			}))
		}
		if cfg.Security.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, logger).Handler)
		}
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout, logger))

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(middleware.ClientIdentity)
			r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
			r.Use(apierrors.NewErrorMiddleware(errorHandler, logger).Handler)
			r.Use(middleware.AuditLog(logger))

			health := NewHealthHandler(d.Health, logger)
			r.Get("/health", health.HealthCheck)
			r.Get("/health/live", health.LivenessCheck)
			r.Get("/version", health.Version)
			r.With(requireSession).Get("/state", NewStateHandler(errorHandler).Snapshot)

			forms := NewFormHandler(d.Validator, d.Gate, requests, errorHandler, logger)
			r.Get("/security/bot-context", forms.BotContext)

			// JSON bodies only from here on, except document uploads
			r.Group(func(r chi.Router) {
				r.Use(middleware.ContentTypeValidator("application/json", "multipart/form-data"))

				r.Post("/validate", forms.Validate)
				r.Mount("/auth", NewAuthHandler(d.Auth, requests, errorHandler).Routes(requireSession))

				r.Group(func(r chi.Router) {
					r.Use(requireSession)
					r.Mount("/tickets", NewTicketHandler(d.Tickets, requests, errorHandler).Routes())
					r.Mount("/vehicles", NewVehicleHandler(d.Vehicles, requests, errorHandler).Routes())
					r.Mount("/profile", NewProfileHandler(d.Users, requests, errorHandler,
						2*validation.DefaultMaxDocumentSize, logger).Routes())
				})
			})
		})
	})

	return r
}
