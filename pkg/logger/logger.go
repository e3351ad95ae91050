// Package logger provides the structured logging interface every
// component in this repository takes by constructor injection, backed by
// go.uber.org/zap. It mirrors the teacher's small LoggerI wrapper, except
// it talks to zap directly rather than through an intermediate vendor
// package, since that package's public surface beyond a handful of calls
// isn't something we can safely extrapolate (see DESIGN.md).
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled, structured logging interface used throughout the
// controller. Field-pair variadic methods follow zap's SugaredLogger
// convention (alternating key, value).
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
	Fatalw(msg string, kv ...any)

	// Printf-style variants, for call sites that build their own message
	// rather than passing structured field pairs.
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)

	With(kv ...any) Logger
	Sync() error
}

type zapLogger struct {
	s *zap.SugaredLogger
}

var std Logger = New("dsc", "info")

// Log is the package-level default, used by components constructed
// without an explicit logger (the teacher's global `Log` pattern).
var Log = std

// New builds a Logger with the given name (added as a "component" field)
// and level ("debug", "info", "warn", "error").
func New(name string, level string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}
	return &zapLogger{s: base.Sugar().With("component", name)}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel adjusts the package-level default logger's level.
func SetLevel(level string) {
	std = New("dsc", level)
	Log = std
}

func (l *zapLogger) Debugw(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *zapLogger) Fatalw(msg string, kv ...any) { l.s.Fatalw(msg, kv...) }

func (l *zapLogger) Debug(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *zapLogger) Info(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *zapLogger) Warn(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *zapLogger) Error(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *zapLogger) Fatal(format string, args ...any) { l.s.Fatalf(format, args...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) Sync() error {
	return l.s.Sync()
}

// WithFields returns the package default logger decorated with the given
// field pairs, e.g. logger.WithFields("peer_host", "mme01.example.com").
func WithFields(kv ...any) Logger {
	return Log.With(kv...)
}
