package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// FromContext returns the logger carried by ctx, or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return L()
}

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// With returns a context whose logger carries attrs on every record, e.g.
// the user and path of the request being served.
func With(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	h := FromContext(ctx).Handler().WithAttrs(attrs)
	return WithLogger(ctx, slog.New(h))
}
