package diag

import (
	"context"
	"log/slog"
)

// Slog forwards notifications to a structured logger
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a sink backed by logger; a nil logger uses slog.Default()
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

// Notify implements Sink
func (s *Slog) Notify(level Level, event string, keyvals ...any) {
	s.logger.Log(context.Background(), slogLevel(level), event, keyvals...)
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// WithSink returns a copy of ctx carrying sink
func WithSink(ctx context.Context, sink Sink) context.Context {
	return context.WithValue(ctx, ctxKey{}, sink)
}

// FromContext returns the sink stored in ctx, or Discard
func FromContext(ctx context.Context) Sink {
	if sink, ok := ctx.Value(ctxKey{}).(Sink); ok && sink != nil {
		return sink
	}
	return Discard
}
