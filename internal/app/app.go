package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"parkingapp/internal/backend"
	"parkingapp/internal/config"
	"parkingapp/internal/infrastructure"
	"parkingapp/internal/security"
	"parkingapp/internal/services"
	"parkingapp/internal/store"
	httpapi "parkingapp/internal/transport/http"
	"parkingapp/internal/validation"
	ws "parkingapp/internal/websocket"
	"parkingapp/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        chi.Router
	Server        *http.Server
	Sessions      *store.Sessions
	Backend       *backend.Client
	Gate          *security.Gate
	Validator     *validation.Validator
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Auth     *services.AuthService
	Tickets  *services.TicketService
	Vehicles *services.VehicleService
	Users    *services.UserService
	Health   *services.HealthService
}

// NewApplication wires every component from cfg. Nothing listens until Run.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.InitializeLogger(cfg.Logging)
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("version", contracts.GetFullVersionString()),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("oracle", cfg.Security.Oracle.Provider))

	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = contracts.Version
	}
	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the shared collaborators and the services on top
func (a *Application) initializeServices(ctx context.Context) error {
	client, err := backend.New(a.Config.Backend, a.Logger, backend.WithMetrics(a.Metrics))
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}
	a.Backend = client

	oracle := security.NewOracle(ctx, a.Config.Security, a.Config.Redis, a.Logger)
	a.Gate = security.NewGate(oracle, a.Logger, a.Metrics, a.Config.Security.Oracle.HumanThreshold)
	a.Sessions = store.NewSessions(a.Config.Security.SessionTTL)
	a.Validator = validation.NewValidator(validation.NewFormatOracle(), a.Logger)

	deps := services.Deps{
		Backend:         client,
		Gate:            a.Gate,
		Validator:       a.Validator,
		Files:           validation.NewFileValidator(a.Logger, 0),
		Sessions:        a.Sessions,
		Logger:          a.Logger,
		MaxPaymentCents: a.Config.Backend.MaxPaymentCents,
		Now:             time.Now,
	}

	a.WebSocketHub = ws.NewHub(a.Config.WebSocket, a.Metrics, a.Logger)

	a.Services = &ServiceContainer{
		Auth:     services.NewAuthService(deps),
		Tickets:  services.NewTicketService(deps),
		Vehicles: services.NewVehicleService(deps),
		Users:    services.NewUserService(deps),
		Health: services.NewHealthService(contracts.Version, contracts.BuildTime,
			client, a.Gate, a.WebSocketHub, a.Logger),
	}

	a.Logger.InfoContext(ctx, "Services initialized",
		slog.String("oracle", a.Gate.OracleName()),
		slog.String("breaker", client.BreakerState()))
	return nil
}

func (a *Application) setupRouter() {
	a.Router = httpapi.NewRouter(httpapi.RouterDeps{
		Config:          a.Config,
		Logger:          a.Logger,
		Auth:            a.Services.Auth,
		Tickets:         a.Services.Tickets,
		Vehicles:        a.Services.Vehicles,
		Users:           a.Services.Users,
		Validator:       a.Validator,
		Gate:            a.Gate,
		Sessions:        a.Sessions,
		Health:          a.Services.Health,
		Stream:          a.WebSocketHub.Handler(a.Config.Security.AllowedOrigins),
		Metrics:         a.OTelProviders.PrometheusHTTP,
		Tracer:          a.OTelProviders.Tracer,
		BusinessMetrics: a.Metrics,
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run listens on the configured port and serves until ctx is cancelled or
// the server fails, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.WebSocketHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.Sessions.Run(gctx, min(a.Config.Security.SessionTTL, time.Minute))
		return nil
	})

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started",
			slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(ctx, "Shutdown requested")
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if err := a.Gate.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing security oracle", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}
