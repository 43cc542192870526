// Package otelobs implements observability.Provider on OpenTelemetry.
// Spans go to the configured TracerProvider, counters and histograms to the
// MeterProvider, and log messages to a slog.Logger so traces and logs can be
// shipped independently.
package otelobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/manifold-ai/manifold/providers/observability"
)

// instrumentationName identifies this library to OpenTelemetry backends.
const instrumentationName = "github.com/manifold-ai/manifold"

// Observer implements observability.Provider using OpenTelemetry tracing and
// metrics. Construct it with [New]; the zero value is not usable.
type Observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

var _ observability.Provider = (*Observer)(nil)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	logger         *slog.Logger
}

// Option configures an [Observer].
type Option func(*config)

// WithTracerProvider overrides the global otel tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = provider }
}

// WithMeterProvider overrides the global otel meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = provider }
}

// WithLogger overrides the logger used for the Logger half of the interface.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates an OpenTelemetry-backed observer. Without options it uses the
// global tracer and meter providers and slog.Default().
func New(opts ...Option) *Observer {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.meterProvider == nil {
		cfg.meterProvider = otel.GetMeterProvider()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Observer{
		tracer:     cfg.tracerProvider.Tracer(instrumentationName),
		meter:      cfg.meterProvider.Meter(instrumentationName),
		logger:     cfg.logger,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// toKeyValues converts our attributes to otel key-values.
func toKeyValues(attrs []observability.Attribute) []attribute.KeyValue {
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		switch value := attr.Value.(type) {
		case string:
			converted = append(converted, attribute.String(attr.Key, value))
		case int:
			converted = append(converted, attribute.Int(attr.Key, value))
		case int64:
			converted = append(converted, attribute.Int64(attr.Key, value))
		case float64:
			converted = append(converted, attribute.Float64(attr.Key, value))
		case bool:
			converted = append(converted, attribute.Bool(attr.Key, value))
		case time.Duration:
			converted = append(converted, attribute.String(attr.Key, value.String()))
		default:
			converted = append(converted, attribute.String(attr.Key, fmt.Sprint(value)))
		}
	}
	return converted
}

// --- TRACING ---

// StartSpan starts an otel span carrying the given attributes. The returned
// context holds the span, so nested StartSpan calls build a proper trace tree.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(toKeyValues(attrs)...))
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttributes(attrs ...observability.Attribute) {
	s.span.SetAttributes(toKeyValues(attrs)...)
}

func (s *otelSpan) SetStatus(code observability.StatusCode, description string) {
	switch code {
	case observability.StatusOK:
		s.span.SetStatus(codes.Ok, description)
	case observability.StatusError:
		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetStatus(codes.Unset, description)
	}
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toKeyValues(attrs)...))
}

// --- METRICS ---

// Counter returns the named Int64Counter, creating it on first use. An
// instrument the meter rejects degrades to a no-op so callers never branch.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	if counter, ok := o.counters[name]; ok {
		return &otelCounter{counter: counter}
	}

	counter, err := o.meter.Int64Counter(name)
	if err != nil {
		o.logger.Warn("otelobs: creating counter failed", "metric", name, "error", err)
		return noopCounter{}
	}
	o.counters[name] = counter
	return &otelCounter{counter: counter}
}

// Histogram returns the named Float64Histogram, creating it on first use.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()

	if histogram, ok := o.histograms[name]; ok {
		return &otelHistogram{histogram: histogram}
	}

	histogram, err := o.meter.Float64Histogram(name)
	if err != nil {
		o.logger.Warn("otelobs: creating histogram failed", "metric", name, "error", err)
		return noopHistogram{}
	}
	o.histograms[name] = histogram
	return &otelHistogram{histogram: histogram}
}

type otelCounter struct {
	counter metric.Int64Counter
}

func (c *otelCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.counter.Add(ctx, value, metric.WithAttributes(toKeyValues(attrs)...))
}

type otelHistogram struct {
	histogram metric.Float64Histogram
}

func (h *otelHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.histogram.Record(ctx, value, metric.WithAttributes(toKeyValues(attrs)...))
}

type noopCounter struct{}

func (noopCounter) Add(context.Context, int64, ...observability.Attribute) {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...observability.Attribute) {}

// --- LOGGING ---

// Trace logs below DEBUG; most handlers filter it out unless configured.
func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug-4, msg, attrs...)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs...)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs...)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs at ERROR level and, when the context carries a recording span,
// mirrors the message onto it as an exception event.
func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(msg, trace.WithAttributes(toKeyValues(attrs)...))
	}
	o.log(ctx, slog.LevelError, msg, attrs...)
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs ...observability.Attribute) {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	o.logger.LogAttrs(ctx, level, msg, logAttrs...)
}
