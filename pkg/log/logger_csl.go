package log

import (
	"context"
	"log"
)

type CslLogger struct{}

func NewCslLogger() (*CslLogger, error) {
	return &CslLogger{}, nil
}

func (l *CslLogger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.print(ctx, "[DEBUG] ", format, args...)
}

func (l *CslLogger) Info(ctx context.Context, format string, args ...interface{}) {
	l.print(ctx, "[INFO] ", format, args...)
}

func (l *CslLogger) Notice(ctx context.Context, format string, args ...interface{}) {
	l.print(ctx, "[NOTICE] ", format, args...)
}

func (l *CslLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.print(ctx, "[WARN] ", format, args...)
}

func (l *CslLogger) Error(ctx context.Context, format string, args ...interface{}) {
	l.print(ctx, "[ERROR] ", format, args...)
}

func (l *CslLogger) Critical(ctx context.Context, format string, args ...interface{}) {
	l.print(ctx, "[CRITICAL] ", format, args...)
}

func (l *CslLogger) print(ctx context.Context, level, format string, args ...interface{}) {
	newFormat := level + format
	if id := PassID(ctx); id != "" {
		newFormat = level + "[pass " + id + "] " + format
	}
	log.Printf(newFormat, args...)
}
