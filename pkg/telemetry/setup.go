package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Setup configures the global tracer provider based on the configuration.
// The returned provider must be shut down on exit to flush pending spans.
func Setup(ctx context.Context, config Config) (*tracesdk.TracerProvider, error) {
	res, err := newResource()
	if err != nil {
		return nil, err
	}

	exporter, err := newExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	tracer = otel.Tracer(PACKAGE)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}

// newExporter creates the span exporter: OTLP over HTTP when configured,
// otherwise Jaeger.
func newExporter(ctx context.Context, config Config) (tracesdk.SpanExporter, error) {
	if config.OTLP.Host != "" {
		options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLP.Host)}
		if !config.OTLP.Secure {
			options = append(options, otlptracehttp.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(options...))
	}

	if config.JaegerURL != "" {
		return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerURL)))
	}

	return nil, fmt.Errorf("no exporter configured")
}

// newResource identifies this service instance.
func newResource() (*resource.Resource, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(PACKAGE),
		attribute.String("ID", id.String()),
	), nil
}
