// Package reporting forwards unexpected errors to Sentry.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"

	"lookaway/internal/logging"
)

var uuidRx = regexp.MustCompile(`[0-9a-f]{8}-?([0-9a-f]{4}-?){3}[0-9a-f]{12}`)

func sanitizeError(err string) string {
	return uuidRx.ReplaceAllString(err, "<uuid>")
}

// Report logs err and sends it to the Sentry hub attached to ctx, if any.
func Report(ctx context.Context, err error, extras ...map[string]string) {
	if err == nil {
		err = errors.New("no error provided")
	}

	logger := logging.FromContext(ctx)
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		logger.Error("Unreported error", slog.String("error", err.Error()), slog.Any("extras", extras))
		return
	}

	logger.Error(
		"Reporting error to Sentry",
		slog.String("error", err.Error()),
		slog.Any("extras", extras),
	)

	hub.WithScope(func(scope *sentry.Scope) {
		scopeFrom(ctx).apply(scope)
		for _, extra := range extras {
			for key, value := range extra {
				scope.SetExtra(key, value)
			}
		}

		scope.SetFingerprint([]string{"{{ default }}", sanitizeError(err.Error())})
		hub.CaptureException(err)
	})
}

func addMetaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent := r.UserAgent()
		if userAgent == "" {
			userAgent = "<missing>"
		}

		ctx := WithTags(r.Context(), map[string]string{
			"userAgent":  userAgent,
			"methodPath": fmt.Sprintf("%s %s", r.Method, r.URL.Path),
		})
		ctx = withReceivedAt(ctx, time.Now())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// InitSentryMiddleware initialises the Sentry client and returns an HTTP
// middleware that attaches a hub to every request, plus a flush function.
func InitSentryMiddleware(dsn, environment string) (func(http.Handler) http.Handler, func(), error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: 1.0 / 100.0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise sentry: %w", err)
	}

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: false})

	middleware := func(next http.Handler) http.Handler {
		return sentryHandler.Handle(addMetaMiddleware(next))
	}
	flush := func() {
		sentry.Flush(5 * time.Second)
	}

	return middleware, flush, nil
}

// NewSentryMiddlewareOrMock returns a pass-through middleware when no DSN is
// configured.
func NewSentryMiddlewareOrMock(dsn, environment string) (func(http.Handler) http.Handler, func(), error) {
	if dsn != "" {
		return InitSentryMiddleware(dsn, environment)
	}
	return func(next http.Handler) http.Handler { return next }, func() {}, nil
}
