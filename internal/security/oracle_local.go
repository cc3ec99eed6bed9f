package security

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleAfter drops limiter entries untouched for this long
const staleAfter = 2 * time.Hour

var automatedAgentMarkers = []string{
	"bot", "crawler", "spider", "curl", "wget", "python-requests",
	"go-http-client", "headless", "phantomjs", "selenium",
}

// LocalOracle enforces policies with in-process token buckets. Limits are
// per gateway instance, so it suits single-instance deployments and tests.
type LocalOracle struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	policies map[Category]Policy
	now      func() time.Time
	logger   *slog.Logger
	lastGC   time.Time
}

type limiterEntry struct {
	limiter      *rate.Limiter
	blockedUntil time.Time
	lastSeen     time.Time
}

// NewLocalOracle creates an in-process oracle
func NewLocalOracle(policies map[Category]Policy, logger *slog.Logger) *LocalOracle {
	if logger == nil {
		logger = slog.Default()
	}
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &LocalOracle{
		entries:  make(map[string]*limiterEntry),
		policies: policies,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "local_oracle")),
	}
}

// Check spends one token from the identifier's bucket for category. An
// empty bucket blocks the identifier for the policy's block duration.
func (o *LocalOracle) Check(ctx context.Context, category Category, req Request) (Verdict, error) {
	policy, ok := o.policies[category]
	if !ok || policy.Attempts <= 0 || policy.Window <= 0 {
		return Allow(), nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	o.collectGarbage(now)

	key := string(category) + "|" + req.Identifier
	entry, ok := o.entries[key]
	if !ok {
		every := policy.Window / time.Duration(policy.Attempts)
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(every), policy.Attempts)}
		o.entries[key] = entry
	}
	entry.lastSeen = now

	if now.Before(entry.blockedUntil) {
		return Verdict{
			Allowed:    false,
			Reasons:    []string{MsgTooManyAttempts},
			RetryAfter: entry.blockedUntil.Sub(now),
		}, nil
	}

	if entry.limiter.AllowN(now, 1) {
		return Allow(), nil
	}

	entry.blockedUntil = now.Add(policy.Block())
	o.logger.InfoContext(ctx, "client blocked",
		slog.String("category", string(category)),
		slog.String("client_hash", HashIdentifier(req.Identifier)),
		slog.Duration("block", policy.Block()))

	return Verdict{Allowed: false, Reasons: []string{MsgTooManyAttempts}, RetryAfter: policy.Block()}, nil
}

// BotScore scores the user agent. Missing or tool-like agents score high.
func (o *LocalOracle) BotScore(_ context.Context, req Request) (float64, error) {
	ua := strings.ToLower(strings.TrimSpace(req.UserAgent))
	if ua == "" {
		return 0.9, nil
	}
	for _, marker := range automatedAgentMarkers {
		if strings.Contains(ua, marker) {
			return 0.95, nil
		}
	}
	return 0.1, nil
}

func (o *LocalOracle) Name() string { return "local" }

func (o *LocalOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = make(map[string]*limiterEntry)
	return nil
}

// collectGarbage runs at most once a minute. Caller holds o.mu.
func (o *LocalOracle) collectGarbage(now time.Time) {
	if now.Sub(o.lastGC) < time.Minute {
		return
	}
	o.lastGC = now
	for key, e := range o.entries {
		if now.Sub(e.lastSeen) > staleAfter && now.After(e.blockedUntil) {
			delete(o.entries, key)
		}
	}
}
