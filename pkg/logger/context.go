package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

var requestLoggerKey contextKey

// With derives a context whose logger carries the extra attributes.
// Middleware and handlers layer identity on as it becomes known: first
// the request id, then the authenticated user.
func With(ctx context.Context, fields ...any) context.Context {
	l := From(ctx).With(fields...)
	return context.WithValue(ctx, requestLoggerKey, l)
}

// From returns the request-scoped logger, or the process logger when
// the context carries none.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(requestLoggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
