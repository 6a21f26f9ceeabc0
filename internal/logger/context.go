package logger

import (
	"context"

	"go.uber.org/zap"
)

// ctxKey keys the request-scoped logger in a context.
type ctxKey struct{}

// ContextWithLogger attaches a request-scoped logger to ctx. The HTTP
// middleware uses it to carry per-request fields (request id, tenant)
// down to the handlers.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or a no-op logger when
// the context carries none, so callers never need a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
