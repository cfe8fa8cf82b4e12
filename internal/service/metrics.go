package service

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type serviceMetricsCollection struct {
	lookAways       metric.Int64Counter
	sessionsStarted metric.Int64Counter
	sessionsEnded   metric.Int64Counter
	sessionDuration metric.Float64Histogram
}

var metrics serviceMetricsCollection

func init() {
	const name = "lookaway/service"
	meter := otel.Meter(name)

	lookAways, err := meter.Int64Counter(
		"lookaway/events",
		metric.WithDescription("Look-away events recorded against a session"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create look-away metric: %w", err))
	}

	sessionsStarted, err := meter.Int64Counter(
		"lookaway/sessions_started",
		metric.WithDescription("Monitoring sessions started"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create sessions started metric: %w", err))
	}

	sessionsEnded, err := meter.Int64Counter(
		"lookaway/sessions_ended",
		metric.WithDescription("Monitoring sessions ended"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create sessions ended metric: %w", err))
	}

	sessionDuration, err := meter.Float64Histogram(
		"lookaway/session_duration_seconds",
		metric.WithDescription("Elapsed time of ended monitoring sessions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create session duration metric: %w", err))
	}

	metrics = serviceMetricsCollection{
		lookAways:       lookAways,
		sessionsStarted: sessionsStarted,
		sessionsEnded:   sessionsEnded,
		sessionDuration: sessionDuration,
	}
}
