package logutil

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

type Config struct {
	Level   string `json:"level"`
	File    string `json:"file"`
	Console bool   `json:"console"`
}

// Init builds the process logger. Safe to call once at startup before any
// request is served.
func Init(cfg Config) error {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return err
		}
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
	}
	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	}

	mu.Lock()
	base = zap.New(zapcore.NewTee(cores...))
	mu.Unlock()
	return nil
}

// WithRequestID binds a request identifier to the context so GetLogger can
// attach it to every line.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	mu.RLock()
	logger := base
	mu.RUnlock()
	return context.WithValue(ctx, ctxKey{}, logger.With(zap.String("request_id", requestID)))
}

// WithLogger stores a prepared logger in the context; GetLogger returns it
// for all downstream calls.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func GetLogger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return logger
		}
	}
	mu.RLock()
	defer mu.RUnlock()
	return base
}
