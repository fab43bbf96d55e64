package logger

import (
	"context"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields map[string]any

// Context keys for correlation ids
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	RunIDKey     contextKey = "run_id"
)

// Global logger instance. Discards everything until Init or SetLogger.
var defaultLogger = zap.NewNop()

// Init builds the process-wide JSON logger. Unknown levels fall back to info.
func Init(serviceName, level string) {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		log.Printf("failed to build logger, falling back to nop: %v", err)
		l = zap.NewNop()
	}
	defaultLogger = l.With(zap.String("service", serviceName))
}

// SetLogger replaces the underlying zap logger. Used by tests.
func SetLogger(l *zap.Logger) {
	defaultLogger = l
}

// Sync flushes buffered entries.
func Sync() {
	_ = defaultLogger.Sync()
}

func write(level zapcore.Level, ctx context.Context, message string, err error, fields Fields) {
	zf := make([]zap.Field, 0, len(fields)+3)
	if ctx != nil {
		if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
			zf = append(zf, zap.String("request_id", requestID))
		}
		if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
			zf = append(zf, zap.String("run_id", runID))
		}
	}
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}

	if ce := defaultLogger.Check(level, message); ce != nil {
		ce.Write(zf...)
	}
}

func first(fields []Fields) Fields {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

func Info(ctx context.Context, message string, fields ...Fields) {
	write(zapcore.InfoLevel, ctx, message, nil, first(fields))
}

func Error(ctx context.Context, message string, err error, fields ...Fields) {
	write(zapcore.ErrorLevel, ctx, message, err, first(fields))
}

func Warn(ctx context.Context, message string, fields ...Fields) {
	write(zapcore.WarnLevel, ctx, message, nil, first(fields))
}

// WarnErr logs at warn level with an attached error.
func WarnErr(ctx context.Context, message string, err error, fields ...Fields) {
	write(zapcore.WarnLevel, ctx, message, err, first(fields))
}

func Debug(ctx context.Context, message string, fields ...Fields) {
	write(zapcore.DebugLevel, ctx, message, nil, first(fields))
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithRunID tags the context with the id of a single task execution.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}
