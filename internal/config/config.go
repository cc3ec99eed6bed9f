package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Backend   BackendConfig   `yaml:"backend" envconfig:"BACKEND"`
	Redis     RedisConfig     `yaml:"redis" envconfig:"REDIS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Oracle         OracleConfig    `yaml:"oracle" envconfig:"ORACLE"`
	// SessionTTL drops a signed-in session's state after this much inactivity
	SessionTTL time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	// Policies overrides the built-in per-category limits, keyed by category name
	Policies map[string]PolicyConfig `yaml:"policies" ignored:"true"`
}

// RateLimitConfig is the coarse per-process request limit applied before routing
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// OracleConfig selects and configures the security oracle provider
type OracleConfig struct {
	// Provider is one of none, http, redis or local
	Provider       string        `yaml:"provider" envconfig:"PROVIDER"`
	Endpoint       string        `yaml:"endpoint" envconfig:"ENDPOINT"`
	APIKey         string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	HumanThreshold float64       `yaml:"human_threshold" envconfig:"HUMAN_THRESHOLD"`
}

// PolicyConfig is the attempt budget for one security category
type PolicyConfig struct {
	Attempts      int           `yaml:"attempts"`
	Window        time.Duration `yaml:"window"`
	BlockDuration time.Duration `yaml:"block_duration"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// BackendConfig describes the parking REST backend
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	MaxPaymentCents int64         `yaml:"max_payment_cents" envconfig:"MAX_PAYMENT_CENTS"`
	Breaker         BreakerConfig `yaml:"breaker" envconfig:"BREAKER"`
}

// BreakerConfig configures the circuit breaker in front of the backend
type BreakerConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	// MaxRequests is the number of trial requests allowed while half-open
	MaxRequests uint32 `yaml:"max_requests" envconfig:"MAX_REQUESTS"`
	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL"`
	// Timeout is how long the breaker stays open
	Timeout             time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" envconfig:"CONSECUTIVE_FAILURES"`
}

// RedisConfig is used by the redis security oracle
type RedisConfig struct {
	Addr      string `yaml:"addr" envconfig:"ADDR"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	MaxMessageSize  int64         `yaml:"max_message_size" envconfig:"MAX_MESSAGE_SIZE"`
}

// TelemetryConfig controls tracing and metrics export
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	// ServiceVersion defaults to the build version
	ServiceVersion string `yaml:"service_version" envconfig:"SERVICE_VERSION"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceStdout    bool   `yaml:"trace_stdout" envconfig:"TRACE_STDOUT"`
	EnableMetrics  bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
}

// Load loads configuration from defaults, the config file, .env and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration using the given YAML file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Environment variables override the file. Unset variables leave values untouched.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and normalizes enumerations
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base url: %q", c.Backend.BaseURL)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	c.Security.Oracle.Provider = strings.ToLower(strings.TrimSpace(c.Security.Oracle.Provider))
	switch c.Security.Oracle.Provider {
	case "":
		c.Security.Oracle.Provider = OracleProviderNone
	}

	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	if c.Security.Oracle.HumanThreshold <= 0 || c.Security.Oracle.HumanThreshold > 1 {
		c.Security.Oracle.HumanThreshold = DefaultHumanThreshold
	}

	for name, p := range c.Security.Policies {
		if p.Attempts <= 0 || p.Window <= 0 {
			return fmt.Errorf("security policy %q needs positive attempts and window", name)
		}
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "stderr", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/gateway.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file, or "" if none exists
func getConfigFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8081"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
			Oracle: OracleConfig{
				Provider:       OracleProviderNone,
				Timeout:        DefaultOracleTimeout,
				HumanThreshold: DefaultHumanThreshold,
			},
			SessionTTL: DefaultSessionTTL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
		},
		Backend: BackendConfig{
			BaseURL:         "http://localhost:3000/api",
			Timeout:         DefaultBackendTimeout,
			MaxIdleConns:    100,
			MaxPaymentCents: 100000,
			Breaker: BreakerConfig{
				Enabled:             true,
				MaxRequests:         1,
				Interval:            time.Minute,
				Timeout:             30 * time.Second,
				ConsecutiveFailures: 5,
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "parking:security",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  4096,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "parking-gateway",
			Environment:   "development",
			EnableMetrics: true,
		},
	}
}
