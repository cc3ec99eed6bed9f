package security

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by oracles that cannot answer at all
var ErrUnavailable = errors.New("security oracle unavailable")

// Request is what the gate tells an oracle about a protected action. Payload
// has already been sanitized and redacted.
type Request struct {
	Identifier string         `json:"identifier"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Verdict is an oracle's decision for one action
type Verdict struct {
	Allowed    bool          `json:"allowed"`
	Reasons    []string      `json:"reasons,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Allow is the verdict for an action nothing objects to
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Oracle owns rate limits and bot detection. Implementations keep their own
// counters, windows and block durations; the gate only interprets verdicts.
type Oracle interface {
	// BotScore returns the likelihood in [0,1] that the caller is automated
	BotScore(ctx context.Context, req Request) (float64, error)
	// Check decides whether the action in category may proceed
	Check(ctx context.Context, category Category, req Request) (Verdict, error)
	Name() string
	Close() error
}

// NoopOracle allows everything. It is the oracle used when no provider is
// configured or the configured one cannot start.
type NoopOracle struct{}

func (NoopOracle) BotScore(context.Context, Request) (float64, error) {
	return 0, ErrUnavailable
}

func (NoopOracle) Check(context.Context, Category, Request) (Verdict, error) {
	return Allow(), nil
}

func (NoopOracle) Name() string { return "noop" }

func (NoopOracle) Close() error { return nil }
