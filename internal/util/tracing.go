package util

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultTracerName = "cake-shop"

var (
	tracerMu sync.RWMutex
	tracer   trace.Tracer
)

// InitTracer initializes OpenTelemetry tracing. Spans are exported to Jaeger
// when an endpoint is configured and only kept in-process otherwise.
func InitTracer(serviceName, jaegerEndpoint string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if jaegerEndpoint != "" {
		exporter, err := jaeger.New(
			jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	tracerMu.Lock()
	tracer = tp.Tracer(serviceName)
	tracerMu.Unlock()

	GetLogger().Info("Tracer initialized",
		zap.String("service", serviceName),
		zap.String("endpoint", jaegerEndpoint))
	return tp, nil
}

// GetTracer returns the global tracer, falling back to the otel global provider
// until InitTracer has run
func GetTracer() trace.Tracer {
	tracerMu.RLock()
	t := tracer
	tracerMu.RUnlock()
	if t != nil {
		return t
	}

	tracerMu.Lock()
	defer tracerMu.Unlock()
	if tracer == nil {
		tracer = otel.Tracer(defaultTracerName)
	}
	return tracer
}

// StartSpan starts a new span tagged with optional string attributes given as key/value pairs
func StartSpan(ctx context.Context, spanName string, kv ...string) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, spanName)
	for i := 0; i+1 < len(kv); i += 2 {
		span.SetAttributes(attribute.String(kv[i], kv[i+1]))
	}
	return ctx, span
}

// RecordError marks the span failed when err is non-nil and returns err unchanged
func RecordError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
