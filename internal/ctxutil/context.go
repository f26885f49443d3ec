// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import (
	"context"

	"go.uber.org/zap"
)

// LoggerKey is the context key for the command logger.
type LoggerKey struct{}

// RunIDKey is the context key for the run identifier.
type RunIDKey struct{}

// WithLogger returns a context with the logger embedded.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey{}, logger)
}

// LoggerFromContext returns the logger from context, or a no-op logger if not set.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if v, ok := ctx.Value(LoggerKey{}).(*zap.Logger); ok && v != nil {
			return v
		}
	}
	return zap.NewNop()
}

// WithRunID returns a context with the run ID embedded.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey{}, runID)
}

// RunIDFromContext returns the run ID from context, or empty string if not set.
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey{}).(string); ok {
		return v
	}
	return ""
}
