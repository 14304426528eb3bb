package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/provider-browser"

// Metrics holds all client metrics
type Metrics struct {
	FetchCount          metric.Int64Counter
	FetchSuperseded     metric.Int64Counter
	FetchDuration       metric.Float64Histogram
	ResultCacheHit      metric.Int64Counter
	FavoriteToggleCount metric.Int64Counter
	FavoriteRollback    metric.Int64Counter
}

// metricInterval is how often metrics are pushed to the collector
const metricInterval = 30 * time.Second

// Setup initializes OpenTelemetry tracing and metrics export and returns the
// combined shutdown function. Runtime metrics are collected as well.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return tracerProvider.Shutdown, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		return shutdown, err
	}

	return shutdown, nil
}

// Tracer returns the tracer used by the browse session
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// InitMetrics registers the client's instruments on the global meter provider.
// Without a configured provider the instruments are no-ops.
func InitMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(instrumentationName))
}

// NoopMetrics returns instruments that record nothing; components built
// without explicit metrics fall back to it.
func NoopMetrics() *Metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {

	fetchCount, err := meter.Int64Counter(
		"catalog.fetch.count",
		metric.WithDescription("Number of catalog searches sent to the network"),
	)
	if err != nil {
		return nil, err
	}

	fetchSuperseded, err := meter.Int64Counter(
		"catalog.fetch.superseded",
		metric.WithDescription("Number of catalog results discarded because a newer request was issued"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"catalog.fetch.duration",
		metric.WithDescription("Catalog search duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"result.cache.hit",
		metric.WithDescription("Number of searches answered from the in-memory result cache"),
	)
	if err != nil {
		return nil, err
	}

	toggleCount, err := meter.Int64Counter(
		"favorites.toggle.count",
		metric.WithDescription("Number of favorite toggles sent to the catalog"),
	)
	if err != nil {
		return nil, err
	}

	rollback, err := meter.Int64Counter(
		"favorites.rollback.count",
		metric.WithDescription("Number of optimistic favorite changes rolled back"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		FetchCount:          fetchCount,
		FetchSuperseded:     fetchSuperseded,
		FetchDuration:       fetchDuration,
		ResultCacheHit:      cacheHit,
		FavoriteToggleCount: toggleCount,
		FavoriteRollback:    rollback,
	}, nil
}
