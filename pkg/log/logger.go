package log

import (
	"context"
	"fmt"

	"github.com/thep200/github-top100/cfg"
)

type Logger interface {
	Debug(ctx context.Context, format string, args ...interface{})
	Info(ctx context.Context, format string, args ...interface{})
	Notice(ctx context.Context, format string, args ...interface{})
	Warn(ctx context.Context, format string, args ...interface{})
	Error(ctx context.Context, format string, args ...interface{})
	Critical(ctx context.Context, format string, args ...interface{})
}

// NewLogger builds the backend selected by config.Log.Driver.
func NewLogger(config *cfg.Config) (Logger, error) {
	switch config.Log.Driver {
	case "", "zap":
		return NewZapLogger(config.Log.Format, config.Log.Level)
	case "console":
		return NewCslLogger()
	default:
		return nil, fmt.Errorf("unsupported log driver: %s", config.Log.Driver)
	}
}

type passIDKey struct{}

// WithPassID tags ctx with the id of the sync pass it belongs to.
func WithPassID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, passIDKey{}, id)
}

// PassID returns the pass id stored by WithPassID, or "".
func PassID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(passIDKey{}).(string)
	return id
}
