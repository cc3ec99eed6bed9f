package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"parkingapp/internal/config"
	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/infrastructure"
)

const (
	maxResponseBytes = 4 << 20
	maxLoggedBody    = 512
)

// Fallback messages for backend answers without a usable message
const (
	MsgSessionExpired  = "Your session has expired. Please sign in again."
	MsgNotFound        = "The requested item could not be found."
	MsgRequestRejected = "The request could not be completed."
	MsgTooManyRequests = "Too many requests. Please wait a moment and try again."
)

// Client talks to the parking backend
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
}

// Option customizes a Client
type Option func(*Client)

// WithTransport replaces the base transport under the instrumentation
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = otelhttp.NewTransport(rt)
	}
}

// WithMetrics records backend request metrics
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for cfg.BaseURL
func New(cfg config.BackendConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apierrors.NewConfigError(fmt.Sprintf("invalid backend base URL %q", cfg.BaseURL), err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConns
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		logger: logger.With(slog.String("component", "backend_client")),
	}

	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.logger)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newBreaker(cfg config.BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "parking-backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Only transport failures and 5xx answers count against the backend
		IsSuccessful: func(err error) bool {
			return err == nil || !apierrors.IsType(err, apierrors.ErrTypeNetwork)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// BreakerState reports the circuit breaker state, or "disabled"
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Do sends a JSON request and decodes a JSON response into out. body and
// out may be nil. The returned error is always an *errors.AppError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return apierrors.NewAppError(apierrors.ErrTypeValidation, MsgRequestRejected, fmt.Errorf("encode request: %w", err))
		}
	}
	return c.execute(ctx, method, path, "application/json", payload, out)
}

// Upload sends content as a multipart form file under fieldName
func (c *Client) Upload(ctx context.Context, path, fieldName, fileName string, content []byte, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(fieldName, fileName)
	if err == nil {
		_, err = part.Write(content)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return apierrors.NewAppError(apierrors.ErrTypeValidation, MsgRequestRejected, fmt.Errorf("encode upload: %w", err))
	}

	return c.execute(ctx, http.MethodPost, path, mw.FormDataContentType(), buf.Bytes(), out)
}

func (c *Client) execute(ctx context.Context, method, path, contentType string, payload []byte, out any) error {
	start := time.Now()
	route := routeLabel(path)
	status := 0

	run := func() (interface{}, error) {
		code, err := c.roundTrip(ctx, method, path, contentType, payload, out)
		status = code
		return nil, err
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(run)
	} else {
		_, err = run()
	}

	c.metrics.RecordBackendRequest(ctx, method, route, status, time.Since(start))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.WarnContext(ctx, "backend request short-circuited",
			slog.String("method", method),
			slog.String("route", route))
		return apierrors.NewNetworkError(apierrors.MsgNetworkError, err)
	}
	return err
}

// roundTrip performs one HTTP exchange and maps the outcome. It returns the
// status code, or 0 when no response arrived.
func (c *Client) roundTrip(ctx context.Context, method, path, contentType string, payload []byte, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return 0, apierrors.NewNetworkError(apierrors.MsgNetworkError, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, apierrors.NewCancelledError(ctxErr)
		}
		c.logger.WarnContext(ctx, "backend request failed",
			slog.String("method", method),
			slog.String("route", routeLabel(path)),
			slog.String("error", err.Error()))
		return 0, apierrors.NewNetworkError(apierrors.MsgNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, apierrors.NewNetworkError(apierrors.MsgNetworkError, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
			return resp.StatusCode, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, apierrors.NewNetworkError(apierrors.MsgNetworkError, fmt.Errorf("decode response: %w", err))
		}
		return resp.StatusCode, nil
	}

	return resp.StatusCode, c.statusError(ctx, method, path, resp.StatusCode, raw)
}

func (c *Client) statusError(ctx context.Context, method, path string, status int, raw []byte) error {
	msg := backendMessage(raw)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apierrors.NewUnauthorizedError(orDefault(msg, MsgSessionExpired))
	case status == http.StatusNotFound:
		return apierrors.NewAppError(apierrors.ErrTypeNotFound, orDefault(msg, MsgNotFound), nil)
	case status == http.StatusTooManyRequests:
		return apierrors.NewSecurityRejection(orDefault(msg, MsgTooManyRequests))
	case status >= 400 && status < 500:
		return apierrors.NewAppValidationError(orDefault(msg, MsgRequestRejected), nil)
	}

	logged := string(raw)
	if len(logged) > maxLoggedBody {
		logged = logged[:maxLoggedBody] + "... (truncated)"
	}
	c.logger.ErrorContext(ctx, "backend returned server error",
		slog.String("method", method),
		slog.String("route", routeLabel(path)),
		slog.Int("status_code", status),
		slog.String("response_body", logged))

	return apierrors.NewNetworkError(apierrors.MsgNetworkError, fmt.Errorf("backend HTTP %d", status))
}

func (c *Client) resolve(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// backendMessage extracts {"message": ...} or {"error": ...} from an error body
func backendMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// routeLabel turns a request path into a low-cardinality metric label by
// dropping the query and replacing ID-like segments.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if strings.IndexFunc(seg, unicode.IsDigit) >= 0 {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}
