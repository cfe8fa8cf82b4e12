package reporting

import (
	"context"
	"maps"
	"time"

	"github.com/getsentry/sentry-go"
)

type scopeKey struct{}

// requestScope is what an error report knows about the request it came from.
type requestScope struct {
	tags       map[string]string
	userID     string
	receivedAt time.Time
}

// scopeFrom returns a copy that callers may modify freely.
func scopeFrom(ctx context.Context) requestScope {
	s, _ := ctx.Value(scopeKey{}).(requestScope)
	s.tags = maps.Clone(s.tags)
	if s.tags == nil {
		s.tags = make(map[string]string)
	}
	return s
}

func (s requestScope) store(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

func (s requestScope) apply(scope *sentry.Scope) {
	scope.SetTags(s.tags)
	if s.userID != "" {
		scope.SetUser(sentry.User{ID: s.userID})
	}
	if !s.receivedAt.IsZero() {
		scope.SetExtra("secondsSinceReceived", time.Since(s.receivedAt).Seconds())
	}
}

// WithTags adds tags to every error reported under ctx.
func WithTags(ctx context.Context, tags map[string]string) context.Context {
	s := scopeFrom(ctx)
	maps.Copy(s.tags, tags)
	return s.store(ctx)
}

// WithUserID names the authenticated user in reports made under ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	s := scopeFrom(ctx)
	s.userID = userID
	return s.store(ctx)
}

func withReceivedAt(ctx context.Context, at time.Time) context.Context {
	s := scopeFrom(ctx)
	s.receivedAt = at
	return s.store(ctx)
}
