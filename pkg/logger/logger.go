// Package logger provides the service-wide structured logger on log/slog.
//
// Handlers should log through WithCtx so every line carries the request ID
// injected by the request logger middleware:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order accepted", "order_id", id)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/foodle-app/foodle/config"
)

var L *slog.Logger

func init() {
	L = New(os.Stdout, config.AppEnv(), config.LogLevel())
	slog.SetDefault(L)
}

// New builds a logger: JSON in production, text elsewhere.
// level overrides the environment default when it is a valid slog level name.
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	production := env == "production" || env == "prod"
	if production {
		opts.Level = slog.LevelInfo
	}
	if level != "" {
		var lv slog.Level
		if err := lv.UnmarshalText([]byte(level)); err == nil {
			opts.Level = lv
		}
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if production {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("service", "foodle")
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored in ctx, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
