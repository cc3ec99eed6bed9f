package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// ContextWithTraceID creates a new context with a generated trace ID
func ContextWithTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, GenerateTraceID())
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return ContextWithTraceID(ctx)
	}
	return ctx
}

// ClientIdentity describes the caller of a request as seen by the gateway.
// The security oracle scores and rate-limits on these fields.
type ClientIdentity struct {
	IP        string
	UserAgent string
	SessionID string
	UserID    string
}

// Key returns the most specific identifier available for rate limiting
func (c ClientIdentity) Key() string {
	switch {
	case c.UserID != "":
		return "user:" + c.UserID
	case c.SessionID != "":
		return "session:" + c.SessionID
	case c.IP != "":
		return "ip:" + c.IP
	default:
		return "anonymous"
	}
}

const clientIdentityKey contextKey = "client_identity"

// WithClientIdentity stores the caller identity on ctx
func WithClientIdentity(ctx context.Context, id ClientIdentity) context.Context {
	return context.WithValue(ctx, clientIdentityKey, id)
}

// ClientIdentityFrom returns the caller identity, or the zero value
func ClientIdentityFrom(ctx context.Context) ClientIdentity {
	if ctx == nil {
		return ClientIdentity{}
	}
	id, _ := ctx.Value(clientIdentityKey).(ClientIdentity)
	return id
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithError creates a logger with an error field
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(slog.String("error", err.Error()))
}
