// Package telemetry exports the server's OpenTelemetry metrics over OTLP.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.40.0"
)

// Shutdown flushes pending metrics and stops the exporter.
type Shutdown func(context.Context) error

// Options configures the metric pipeline. An empty Endpoint disables it.
type Options struct {
	ServiceName string
	Environment string
	// Endpoint is an OTLP gRPC collector, either host:port or a URL.
	Endpoint string
	// Interval between exports; the SDK default applies when zero.
	Interval time.Duration
}

func noop(context.Context) error { return nil }

// Setup installs a global meter provider exporting to opts.Endpoint. The
// global no-op provider is left in place when no endpoint is set, so the
// session counters cost nothing in development.
func Setup(ctx context.Context, opts Options) (Shutdown, error) {
	if opts.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx, endpointOption(opts.Endpoint)...)
	if err != nil {
		return noop, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		attribute.String("deployment.environment.name", opts.Environment),
	))
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if opts.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(opts.Interval))
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

func endpointOption(endpoint string) []otlpmetricgrpc.Option {
	if strings.Contains(endpoint, "://") {
		return []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpointURL(endpoint)}
	}
	return []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure()}
}
