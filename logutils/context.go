package logutils

import (
	"context"

	"go.uber.org/zap"
)

type loggerContextKey struct{}

func ContextWithLogger(parent context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(parent, loggerContextKey{}, logger)
}

// LoggerFromContext falls back to the global logger when the context
// carries none.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.L()
}
