package security

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	headerAPIKey    = "X-API-Key"
	headerTimestamp = "X-Timestamp"
	headerNonce     = "X-Nonce"
	headerSignature = "X-Signature"

	maxOracleResponse = 64 << 10
)

// HTTPOracle asks a remote bot-detection and rate-limit service. Requests
// are signed with HMAC-SHA256 over timestamp, nonce and body using the API key.
type HTTPOracle struct {
	endpoint   string
	apiKey     string
	policies   map[Category]Policy
	httpClient *http.Client
	logger     *slog.Logger
}

// HTTPOracleConfig configures NewHTTPOracle
type HTTPOracleConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Policies map[Category]Policy
	// Transport overrides the base transport, mainly for tests
	Transport http.RoundTripper
}

// NewHTTPOracle creates an oracle backed by a remote service
func NewHTTPOracle(cfg HTTPOracleConfig, logger *slog.Logger) (*HTTPOracle, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http oracle: endpoint is required")
	}
	if !strings.HasPrefix(cfg.Endpoint, "https://") && !strings.HasPrefix(cfg.Endpoint, "http://") {
		return nil, fmt.Errorf("http oracle: endpoint %q must be an http(s) URL", cfg.Endpoint)
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPOracle{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		policies: cfg.Policies,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		logger: logger.With(slog.String("component", "http_oracle")),
	}, nil
}

type checkRequest struct {
	Category Category `json:"category"`
	Policy   *Policy  `json:"policy,omitempty"`
	Request
}

type checkResponse struct {
	Allowed           bool     `json:"allowed"`
	Errors            []string `json:"errors"`
	RetryAfterSeconds int      `json:"retry_after_seconds"`
}

type botScoreResponse struct {
	Score float64 `json:"score"`
}

// Check posts the action to {endpoint}/v1/check
func (o *HTTPOracle) Check(ctx context.Context, category Category, req Request) (Verdict, error) {
	body := checkRequest{Category: category, Request: req}
	if p, ok := o.policies[category]; ok {
		body.Policy = &p
	}

	var resp checkResponse
	if err := o.post(ctx, "/v1/check", body, &resp); err != nil {
		return Verdict{}, err
	}

	return Verdict{
		Allowed:    resp.Allowed,
		Reasons:    resp.Errors,
		RetryAfter: time.Duration(resp.RetryAfterSeconds) * time.Second,
	}, nil
}

// BotScore posts the caller description to {endpoint}/v1/bot-score
func (o *HTTPOracle) BotScore(ctx context.Context, req Request) (float64, error) {
	var resp botScoreResponse
	if err := o.post(ctx, "/v1/bot-score", req, &resp); err != nil {
		return 0, err
	}
	if resp.Score < 0 || resp.Score > 1 {
		return 0, fmt.Errorf("http oracle: bot score %v out of range", resp.Score)
	}
	return resp.Score, nil
}

func (o *HTTPOracle) Name() string { return "http" }

func (o *HTTPOracle) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

func (o *HTTPOracle) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("http oracle: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http oracle: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if err := o.sign(req, payload); err != nil {
		return err
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http oracle: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOracleResponse))
	if err != nil {
		return fmt.Errorf("http oracle: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		o.logger.WarnContext(ctx, "oracle returned non-200",
			slog.Int("status_code", resp.StatusCode),
			slog.String("path", path))
		return fmt.Errorf("http oracle: HTTP %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("http oracle: parse response: %w", err)
	}
	return nil
}

// sign adds the API key and an HMAC signature over "timestamp|nonce|body"
func (o *HTTPOracle) sign(req *http.Request, body []byte) error {
	if o.apiKey == "" {
		return nil
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("http oracle: generate nonce: %w", err)
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	nonceHex := hex.EncodeToString(nonce)

	req.Header.Set(headerAPIKey, o.apiKey)
	req.Header.Set(headerTimestamp, ts)
	req.Header.Set(headerNonce, nonceHex)
	req.Header.Set(headerSignature, Sign(o.apiKey, ts, nonceHex, body))
	return nil
}

// Sign computes the request signature the oracle service verifies
func Sign(secret, timestamp, nonce string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp + "|" + nonce + "|"))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
