package security

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"parkingapp/internal/config"
	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/infrastructure"
	"parkingapp/internal/shared/redact"
	"parkingapp/internal/validation"
)

// MsgRejected is shown when the oracle declines without giving a reason
const MsgRejected = "This action has been blocked. Please try again later"

// CheckResult is the gate's verdict for one protected action
type CheckResult struct {
	Allowed bool     `json:"allowed"`
	Errors  []string `json:"errors"`
}

// BotContext describes how likely the caller is to be automated
type BotContext struct {
	Score   float64 `json:"score"`
	IsHuman bool    `json:"isHuman"`
}

// DefaultBotContext is reported when no oracle can score the caller
func DefaultBotContext() BotContext {
	return BotContext{Score: 1, IsHuman: true}
}

// Gate runs the oracle in front of state-changing operations. Any oracle
// failure, including a panic, allows the action.
type Gate struct {
	oracle         Oracle
	logger         *slog.Logger
	metrics        *infrastructure.BusinessMetrics
	humanThreshold float64
}

// NewGate creates a gate over oracle. metrics may be nil; a non-positive
// humanThreshold selects the default.
func NewGate(oracle Oracle, logger *slog.Logger, metrics *infrastructure.BusinessMetrics, humanThreshold float64) *Gate {
	if oracle == nil {
		oracle = NoopOracle{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if humanThreshold <= 0 || humanThreshold > 1 {
		humanThreshold = config.DefaultHumanThreshold
	}
	return &Gate{
		oracle:         oracle,
		logger:         logger.With(slog.String("component", "security_gate")),
		metrics:        metrics,
		humanThreshold: humanThreshold,
	}
}

// OracleName reports which provider the gate is using
func (g *Gate) OracleName() string {
	return g.oracle.Name()
}

// Check asks the oracle whether the action may proceed. payload must already
// be sanitized; it is redacted before it is logged or sent anywhere.
func (g *Gate) Check(ctx context.Context, category Category, payload map[string]any) CheckResult {
	start := time.Now()
	req := requestFromContext(ctx, Redact(payload))

	g.logger.InfoContext(ctx, "security check",
		slog.String("category", string(category)),
		slog.Any("payload", req.Payload))

	verdict, err := g.callCheck(ctx, category, req)
	if err != nil {
		g.logger.WarnContext(ctx, "security oracle failed, allowing action",
			slog.String("category", string(category)),
			slog.String("oracle", g.oracle.Name()),
			slog.String("error", err.Error()))
		g.metrics.RecordSecurityCheck(ctx, string(category), true, true, time.Since(start))
		return CheckResult{Allowed: true, Errors: []string{}}
	}

	g.metrics.RecordSecurityCheck(ctx, string(category), verdict.Allowed, false, time.Since(start))

	if verdict.Allowed {
		return CheckResult{Allowed: true, Errors: []string{}}
	}

	reasons := verdict.Reasons
	if len(reasons) == 0 {
		reasons = []string{MsgRejected}
	}
	g.logger.InfoContext(ctx, "security check rejected action",
		slog.String("category", string(category)),
		slog.Duration("retry_after", verdict.RetryAfter))
	return CheckResult{Allowed: false, Errors: append([]string{}, reasons...)}
}

// BotContext scores the caller. Failures report DefaultBotContext.
func (g *Gate) BotContext(ctx context.Context) BotContext {
	req := requestFromContext(ctx, nil)

	score, err := g.callBotScore(ctx, req)
	if err != nil {
		g.logger.DebugContext(ctx, "bot score unavailable", slog.String("error", err.Error()))
		return DefaultBotContext()
	}
	return BotContext{Score: score, IsHuman: score < g.humanThreshold}
}

// Message joins the rejection reasons into one user-facing message
func Message(res CheckResult) string {
	return strings.Join(res.Errors, ", ")
}

// Guard validates and then checks an action, returning the first failure.
// A validation failure is an ErrTypeValidation AppError carrying the field
// errors; a rejection is an ErrTypeSecurityRejection AppError. The caller
// must not perform any part of the action when Guard returns an error.
func (g *Gate) Guard(ctx context.Context, category Category, payload map[string]any, validate func(context.Context) validation.FormResult) error {
	if validate != nil {
		form := validate(ctx)
		if !form.IsValid {
			g.metrics.RecordValidationFailure(ctx, string(category))
			return apierrors.NewAppValidationError(form.Message(), form.Errors)
		}
	}

	if res := g.Check(ctx, category, payload); !res.Allowed {
		return apierrors.NewSecurityRejection(Message(res))
	}
	return nil
}

// Close releases the oracle
func (g *Gate) Close() error {
	return g.oracle.Close()
}

func (g *Gate) callCheck(ctx context.Context, category Category, req Request) (v Verdict, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("oracle panic: %v", rec)
		}
	}()
	return g.oracle.Check(ctx, category, req)
}

func (g *Gate) callBotScore(ctx context.Context, req Request) (score float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("oracle panic: %v", rec)
		}
	}()
	return g.oracle.BotScore(ctx, req)
}

func requestFromContext(ctx context.Context, payload map[string]any) Request {
	id := infrastructure.ClientIdentityFrom(ctx)
	return Request{
		Identifier: id.Key(),
		IP:         id.IP,
		UserAgent:  id.UserAgent,
		Payload:    payload,
	}
}

// Redact returns a copy of payload that is safe to log
func Redact(payload map[string]any) map[string]any {
	return redact.Map(payload)
}
