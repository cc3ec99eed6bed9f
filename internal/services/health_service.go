package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// BreakerReporter reports the backend circuit breaker state
type BreakerReporter interface {
	BreakerState() string
}

// ClientCounter reports connected state-stream clients
type ClientCounter interface {
	ClientCount() int
}

// OracleReporter reports which security oracle is active
type OracleReporter interface {
	OracleName() string
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	backend   BreakerReporter
	oracle    OracleReporter
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. Any reporter may be nil.
func NewHealthService(version, buildTime string, backend BreakerReporter, oracle OracleReporter, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		backend:   backend,
		oracle:    oracle,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck reports each dependency. An open backend breaker makes the
// overall status "degraded".
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"backend":         hs.checkBackend(),
			"security_oracle": hs.checkOracle(),
			"websocket":       hs.checkWebSocket(),
		},
	}

	for _, svc := range status.Services {
		if svc.Status == "degraded" {
			status.Status = "degraded"
			break
		}
	}

	hs.logger.DebugContext(ctx, "health check completed", slog.String("status", status.Status))
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkBackend() ServiceHealth {
	if hs.backend == nil {
		return ServiceHealth{Status: "unknown"}
	}
	switch state := hs.backend.BreakerState(); state {
	case "open":
		return ServiceHealth{Status: "degraded", Message: "circuit breaker open"}
	case "half-open":
		return ServiceHealth{Status: "ok", Message: "circuit breaker probing"}
	default:
		return ServiceHealth{Status: "ok", Message: "circuit breaker " + state}
	}
}

// checkOracle never reports degraded: a missing oracle means the gate fails open
func (hs *HealthService) checkOracle() ServiceHealth {
	if hs.oracle == nil {
		return ServiceHealth{Status: "unknown"}
	}
	name := hs.oracle.OracleName()
	if name == "noop" {
		return ServiceHealth{Status: "ok", Message: "no oracle configured, all actions allowed"}
	}
	return ServiceHealth{Status: "ok", Message: name}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: "unknown"}
	}
	return ServiceHealth{Status: "ok", Message: fmt.Sprintf("%d connected", hs.clients.ClientCount())}
}
