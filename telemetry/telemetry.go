// Package telemetry provides the OpenTelemetry-backed implementation of
// core.Telemetry. Spans export through either the stdout exporter or OTLP
// over gRPC, selected by configuration.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/planweaver/planweaver/core"
)

const serviceName = "planweaver"

// Provider implements core.Telemetry over the OpenTelemetry SDK
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
	meter  metric.Meter
	logger core.Logger

	mu       sync.Mutex
	counters map[string]metric.Float64Counter
}

// New creates a telemetry provider from config and installs it as the
// global tracer provider. Callers own Shutdown
func New(ctx context.Context, cfg core.TelemetryConfig, logger core.Logger) (*Provider, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := sdkresource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("Telemetry initialized", map[string]interface{}{
		"operation": "telemetry_init",
		"exporter":  cfg.Exporter,
		"endpoint":  cfg.Endpoint,
	})

	return &Provider{
		tp:       tp,
		tracer:   tp.Tracer(serviceName),
		meter:    otel.Meter(serviceName),
		logger:   logger,
		counters: make(map[string]metric.Float64Counter),
	}, nil
}

func newExporter(ctx context.Context, cfg core.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
		return exporter, nil
	case "stdout", "":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("%w: unknown telemetry exporter %q",
			core.ErrInvalidConfiguration, cfg.Exporter)
	}
}

// StartSpan begins a span implementing core.Span
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, otelSpan := p.tracer.Start(ctx, name)
	return ctx, &span{otelSpan: otelSpan}
}

// RecordMetric adds to a float64 counter, creating it on first use
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	counter, err := p.counter(name)
	if err != nil {
		p.logger.Debug("Metric instrument creation failed", map[string]interface{}{
			"operation": "record_metric",
			"metric":    name,
			"error":     err.Error(),
		})
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	counter.Add(context.Background(), value, metric.WithAttributes(attrs...))
}

func (p *Provider) counter(name string) (metric.Float64Counter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.counters[name]; ok {
		return c, nil
	}
	c, err := p.meter.Float64Counter(name)
	if err != nil {
		return nil, err
	}
	p.counters[name] = c
	return c, nil
}

// Shutdown flushes and stops the tracer provider
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

// span adapts an OpenTelemetry span to core.Span
type span struct {
	otelSpan trace.Span
}

func (s *span) End() {
	s.otelSpan.End()
}

func (s *span) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.otelSpan.SetAttributes(attribute.String(key, v))
	case int:
		s.otelSpan.SetAttributes(attribute.Int(key, v))
	case int64:
		s.otelSpan.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.otelSpan.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.otelSpan.SetAttributes(attribute.Bool(key, v))
	default:
		s.otelSpan.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.otelSpan.RecordError(err)
	s.otelSpan.SetStatus(codes.Error, err.Error())
}

var _ core.Telemetry = (*Provider)(nil)
