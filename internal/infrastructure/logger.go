package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"parkingapp/internal/config"
	"parkingapp/internal/shared/redact"
)

var (
	globalLogger *slog.Logger
	loggerOnce   sync.Once
	logFile      *os.File
	logFileMu    sync.Mutex
)

// InitializeLogger sets up the global slog logger from configuration
func InitializeLogger(cfg config.LoggingConfig) *slog.Logger {
	loggerOnce.Do(func() {
		globalLogger = createLogger(cfg)
		slog.SetDefault(globalLogger)
	})
	return globalLogger
}

// GetLogger returns the global logger, initializing it with defaults if needed
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return InitializeLogger(DefaultConfig())
	}
	return globalLogger
}

// NewLogger builds a logger for cfg without touching global state
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return createLogger(cfg)
}

func createLogger(cfg config.LoggingConfig) *slog.Logger {
	writer := resolveWriter(cfg)
	return slog.New(&traceHandler{handler: newHandler(writer, cfg)})
}

// newHandler builds the JSON or text handler. Attributes whose key names a
// credential are replaced before they reach any sink.
func newHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       parseLogLevel(cfg.Level),
		AddSource:   cfg.Development,
		ReplaceAttr: redactAttr,
	}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString && redact.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redact.Placeholder)
	}
	return a
}

func resolveWriter(cfg config.LoggingConfig) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		if f, err := openLogFile(cfg.FilePath); err == nil {
			return f
		}
		return os.Stderr
	case "both":
		if f, err := openLogFile(cfg.FilePath); err == nil {
			return io.MultiWriter(os.Stdout, f)
		}
		return os.Stdout
	default:
		return os.Stdout
	}
}

// traceHandler adds trace_id and span_id to every record
type traceHandler struct {
	handler slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	} else if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{handler: h.handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type contextKey string

const traceIDKey contextKey = "trace_id"

// WithTraceID returns a context carrying traceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID extracts the trace ID from context
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// LoggerFromContext returns the global logger bound to the context's trace ID
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()
	if traceID := GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	return logger
}

// DefaultConfig returns console JSON logging at info level
func DefaultConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "console",
	}
}

// CloseLogFile closes the log file if one is open
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting resets global logger state
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	globalLogger = nil
	loggerOnce = sync.Once{}
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logFileMu.Lock()
	logFile = f
	logFileMu.Unlock()
	return f, nil
}
