package log

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts zap to Logger. Notice and Critical have no zap level of
// their own and are written at info and error with a severity field.
type ZapLogger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

func NewZapLogger(format, level string) (*ZapLogger, error) {
	var zc zap.Config
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	z, err := zc.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &ZapLogger{z: z, level: zc.Level}, nil
}

// NewZapLoggerFrom wraps an existing zap logger, mostly for tests.
func NewZapLoggerFrom(z *zap.Logger) *ZapLogger {
	return &ZapLogger{z: z.WithOptions(zap.AddCallerSkip(2)), level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// SetLevel changes the level at runtime, used on config reload.
func (l *ZapLogger) SetLevel(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}

func (l *ZapLogger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, zapcore.DebugLevel, "", format, args...)
}

func (l *ZapLogger) Info(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, zapcore.InfoLevel, "", format, args...)
}

func (l *ZapLogger) Notice(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, zapcore.InfoLevel, "notice", format, args...)
}

func (l *ZapLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, zapcore.WarnLevel, "", format, args...)
}

func (l *ZapLogger) Error(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, zapcore.ErrorLevel, "", format, args...)
}

func (l *ZapLogger) Critical(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, zapcore.ErrorLevel, "critical", format, args...)
}

func (l *ZapLogger) write(ctx context.Context, level zapcore.Level, severity, format string, args ...interface{}) {
	ce := l.z.Check(level, fmt.Sprintf(format, args...))
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 2)
	if id := PassID(ctx); id != "" {
		fields = append(fields, zap.String("pass_id", id))
	}
	if severity != "" {
		fields = append(fields, zap.String("severity", severity))
	}
	ce.Write(fields...)
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info", "notice":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error", "critical":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
