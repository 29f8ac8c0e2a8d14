package logger

import (
	"context"

	"go.uber.org/zap"
)

// CtxZapLogger is a context-aware wrapper around zap.Logger. The module is
// bound at creation time; callers only pass a ctx so request-scoped fields
// can be attached in one place later without touching call sites.
type CtxZapLogger struct {
	base   *zap.Logger
	module string
	config *ManagerConfig
}

// DebugCtx logs at debug level.
func (l *CtxZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Debug(msg, l.enrichFields(ctx, fields)...)
}

// Debug logs at debug level without a context.
func (l *CtxZapLogger) Debug(msg string, fields ...zap.Field) {
	l.DebugCtx(context.Background(), msg, fields...)
}

// InfoCtx logs at info level.
func (l *CtxZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Info(msg, l.enrichFields(ctx, fields)...)
}

// Info logs at info level without a context.
func (l *CtxZapLogger) Info(msg string, fields ...zap.Field) {
	l.InfoCtx(context.Background(), msg, fields...)
}

// WarnCtx logs at warn level.
func (l *CtxZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Warn(msg, l.enrichFields(ctx, fields)...)
}

// Warn logs at warn level without a context.
func (l *CtxZapLogger) Warn(msg string, fields ...zap.Field) {
	l.WarnCtx(context.Background(), msg, fields...)
}

// ErrorCtx logs at error level.
func (l *CtxZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Error(msg, l.enrichFields(ctx, fields)...)
}

// Error logs at error level without a context.
func (l *CtxZapLogger) Error(msg string, fields ...zap.Field) {
	l.ErrorCtx(context.Background(), msg, fields...)
}

// With returns a logger with preset fields.
func (l *CtxZapLogger) With(fields ...zap.Field) *CtxZapLogger {
	return &CtxZapLogger{
		base:   l.base.With(fields...),
		module: l.module,
		config: l.config,
	}
}

// GetZapLogger exposes the underlying zap.Logger for third-party integration.
func (l *CtxZapLogger) GetZapLogger() *zap.Logger {
	return l.base
}

func (l *CtxZapLogger) enrichFields(_ context.Context, fields []zap.Field) []zap.Field {
	if l.config == nil || l.config.AppName == "" {
		return fields
	}
	enriched := make([]zap.Field, 0, len(fields)+1)
	enriched = append(enriched, zap.String("app_name", l.config.AppName))
	return append(enriched, fields...)
}
