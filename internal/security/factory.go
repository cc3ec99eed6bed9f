package security

import (
	"context"
	"fmt"
	"log/slog"

	"parkingapp/internal/config"
	apierrors "parkingapp/internal/errors"
)

// NewOracle builds the oracle selected by sec.Oracle.Provider. A provider
// that is unknown or fails to start is reported once and replaced by
// NoopOracle, so the gateway keeps serving without protection rather than
// refusing every request.
func NewOracle(ctx context.Context, sec config.SecurityConfig, redisCfg config.RedisConfig, logger *slog.Logger) Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	policies, err := PoliciesFromConfig(sec.Policies)
	if err != nil {
		logger.WarnContext(ctx, "ignoring security policy overrides", slog.String("error", err.Error()))
		policies = DefaultPolicies()
	}

	oracle, err := buildOracle(ctx, sec, redisCfg, policies, logger)
	if err != nil {
		depErr := apierrors.NewDependencyUnavailableError("security oracle", err)
		logger.WarnContext(ctx, "security oracle disabled, failing open",
			slog.String("provider", sec.Oracle.Provider),
			slog.String("error", depErr.Error()))
		return NoopOracle{}
	}

	logger.InfoContext(ctx, "security oracle ready", slog.String("provider", oracle.Name()))
	return oracle
}

func buildOracle(ctx context.Context, sec config.SecurityConfig, redisCfg config.RedisConfig, policies map[Category]Policy, logger *slog.Logger) (Oracle, error) {
	switch sec.Oracle.Provider {
	case "", config.OracleProviderNone:
		return NoopOracle{}, nil

	case config.OracleProviderHTTP:
		return NewHTTPOracle(HTTPOracleConfig{
			Endpoint: sec.Oracle.Endpoint,
			APIKey:   sec.Oracle.APIKey,
			Timeout:  sec.Oracle.Timeout,
			Policies: policies,
		}, logger)

	case config.OracleProviderRedis:
		client, err := ConnectRedis(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		return NewRedisOracle(client, redisCfg.KeyPrefix, policies, logger), nil

	case config.OracleProviderLocal:
		return NewLocalOracle(policies, logger), nil

	default:
		return nil, fmt.Errorf("unknown oracle provider %q", sec.Oracle.Provider)
	}
}
