package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyOwner     contextKey = "owner"
	ContextKeyLogger    contextKey = "logger"
)

// Request metadata names shared by the gRPC and HTTP transports.
const (
	HeaderRequestID = "x-request-id"
	HeaderOwner     = "x-owner"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithOwner stores the e-mail of the user the request acts for.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ContextKeyOwner, owner)
}

func OwnerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(ContextKeyOwner).(string); ok {
		return owner
	}
	return ""
}

// WithLogger attaches a request scoped logger.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, log)
}

// LoggerFromContext returns the request logger, or fallback when none is set.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(ContextKeyLogger).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
