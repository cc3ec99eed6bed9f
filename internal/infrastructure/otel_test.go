package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"parkingapp/internal/config"
)

func testTelemetryConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		ServiceName:    "parking-gateway-test",
		ServiceVersion: "test",
		Environment:    "test",
		EnableMetrics:  true,
	}
}

func TestOTelInitialization(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestPrometheusEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordSecurityCheck(context.Background(), "login", false, false, time.Millisecond)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "security_rejections_total")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}

func TestBusinessMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordSecurityCheck(ctx, "login", true, false, time.Millisecond)
	metrics.RecordSecurityCheck(ctx, "login", false, false, time.Millisecond)
	metrics.RecordSecurityCheck(ctx, "payment-submit", true, true, time.Millisecond)
	metrics.RecordValidationFailure(ctx, "ticket-create")
	metrics.RecordBackendRequest(ctx, http.MethodGet, "/tickets", 200, 20*time.Millisecond)
	metrics.RecordBackendRequest(ctx, http.MethodPost, "/tickets", 0, 5*time.Millisecond)
	metrics.AddWebSocketClients(ctx, 2)
	metrics.AddWebSocketClients(ctx, -1)

	got := collect(t, reader)
	assert.EqualValues(t, 3, sumOf(t, got["security_checks_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["security_rejections_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["security_oracle_failures_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["validation_failures_total"]))
	assert.EqualValues(t, 2, sumOf(t, got["backend_requests_total"]))
	assert.EqualValues(t, 1, sumOf(t, got["websocket_clients"]))
}

func TestNilBusinessMetricsIsNoop(t *testing.T) {
	var metrics *BusinessMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		metrics.RecordSecurityCheck(ctx, "login", false, true, time.Second)
		metrics.RecordValidationFailure(ctx, "signup")
		metrics.RecordBackendRequest(ctx, http.MethodGet, "/", 500, time.Second)
		metrics.RecordHTTPRequest(ctx, http.MethodGet, "/", 200, time.Second)
		metrics.AddActiveRequests(ctx, 1)
		metrics.AddWebSocketClients(ctx, 1)
	})
}

func TestTraceIDFromContext(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providers, err := InitializeOTel(testTelemetryConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	ctx, span := providers.Tracer.Start(context.Background(), "test-span")
	defer span.End()
	assert.Len(t, TraceIDFromContext(ctx), 32)
}
