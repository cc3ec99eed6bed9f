package config

import "time"

// Application constants
const (
	AppName = "Parking Gateway"

	// EnvPrefix namespaces every environment variable
	EnvPrefix = "PARKING"

	// ConfigFileEnv names the variable that points at a YAML config file
	ConfigFileEnv = "PARKING_CONFIG_FILE"

	DefaultPort           = 8080
	DefaultBackendTimeout = 15 * time.Second
	DefaultOracleTimeout  = 2 * time.Second
	DefaultSessionTTL     = 12 * time.Hour

	// DefaultHumanThreshold is the bot score below which a client counts as human
	DefaultHumanThreshold = 0.8
)

// Security oracle providers
const (
	OracleProviderNone  = "none"
	OracleProviderHTTP  = "http"
	OracleProviderRedis = "redis"
	OracleProviderLocal = "local"
)
