package security

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"parkingapp/internal/config"
)

// MsgTooManyAttempts is the reason given when a client exceeds a policy
const MsgTooManyAttempts = "Too many attempts. Please try again later"

// RedisOracle keeps fixed-window attempt counters in Redis so limits hold
// across gateway instances. Identifiers are hashed before they become keys.
type RedisOracle struct {
	client   redis.UniversalClient
	prefix   string
	policies map[Category]Policy
	logger   *slog.Logger
}

// ConnectRedis opens a client for cfg and verifies it with PING
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      1,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 128 * time.Millisecond,
		DialTimeout:     2 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisOracle creates an oracle over an existing client. The oracle owns
// the client and closes it on Close.
func NewRedisOracle(client redis.UniversalClient, prefix string, policies map[Category]Policy, logger *slog.Logger) *RedisOracle {
	if logger == nil {
		logger = slog.Default()
	}
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &RedisOracle{
		client:   client,
		prefix:   prefix,
		policies: policies,
		logger:   logger.With(slog.String("component", "redis_oracle")),
	}
}

// Check counts the attempt and blocks the identifier once the policy's
// attempt budget for the current window is spent.
func (o *RedisOracle) Check(ctx context.Context, category Category, req Request) (Verdict, error) {
	policy, ok := o.policies[category]
	if !ok || policy.Attempts <= 0 {
		return Allow(), nil
	}

	id := HashIdentifier(req.Identifier)
	blockKey := o.key("block", category, id)
	countKey := o.key("count", category, id)

	ttl, err := o.client.PTTL(ctx, blockKey).Result()
	if err != nil {
		return Verdict{}, fmt.Errorf("redis oracle: block lookup: %w", err)
	}
	if ttl > 0 {
		return Verdict{Allowed: false, Reasons: []string{MsgTooManyAttempts}, RetryAfter: ttl}, nil
	}

	var incr *redis.IntCmd
	_, err = o.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, countKey)
		pipe.ExpireNX(ctx, countKey, policy.Window)
		return nil
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("redis oracle: count attempt: %w", err)
	}

	if incr.Val() <= int64(policy.Attempts) {
		return Allow(), nil
	}

	block := policy.Block()
	_, err = o.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, blockKey, "1", block)
		pipe.Del(ctx, countKey)
		return nil
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("redis oracle: set block: %w", err)
	}

	o.logger.InfoContext(ctx, "client blocked",
		slog.String("category", string(category)),
		slog.String("client_hash", id),
		slog.Duration("block", block))

	return Verdict{Allowed: false, Reasons: []string{MsgTooManyAttempts}, RetryAfter: block}, nil
}

// BotScore reads a score published under {prefix}:bot:{hash} by an external
// detector. A missing score counts as zero.
func (o *RedisOracle) BotScore(ctx context.Context, req Request) (float64, error) {
	raw, err := o.client.Get(ctx, o.prefix+":bot:"+HashIdentifier(req.Identifier)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis oracle: bot score: %w", err)
	}

	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || score < 0 || score > 1 {
		return 0, fmt.Errorf("redis oracle: invalid bot score %q", raw)
	}
	return score, nil
}

func (o *RedisOracle) Name() string { return "redis" }

func (o *RedisOracle) Close() error {
	return o.client.Close()
}

func (o *RedisOracle) key(kind string, category Category, id string) string {
	return o.prefix + ":" + kind + ":" + string(category) + ":" + id
}

// HashIdentifier maps a client identifier to a fixed-length key component
// so raw IPs and user IDs never appear in Redis.
func HashIdentifier(identifier string) string {
	sum := blake2b.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:16])
}
