package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/manifold-ai/manifold/providers/observability"
)

// LevelTrace sits below slog.LevelDebug and carries wire-level payload
// logging. It is filtered out unless explicitly enabled.
const LevelTrace = slog.LevelDebug - 4

// Observer implements [observability.Provider] on the standard library's
// slog. Spans and metrics are rendered as debug-level log lines, which makes
// it the zero-infrastructure backend: no collector, no exporter, just logs.
type Observer struct {
	logger     *slog.Logger
	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// New builds an Observer. Without options the format and level come from
// MANIFOLD_LOG_FORMAT and MANIFOLD_LOG_LEVEL (compact and INFO by default):
//
//	observer := slogobs.New(
//	    slogobs.WithFormat(slogobs.FormatPretty),
//	    slogobs.WithLevel(slog.LevelDebug),
//	)
//
// An existing logger can be passed through [WithLogger].
func New(opts ...Option) *Observer {
	cfg := applyOptions(opts...)

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(NewHandler(&HandlerOptions{
			Format: cfg.format,
			Level:  cfg.level,
			Output: cfg.output,
			Colors: cfg.colors,
		}))
	}

	return &Observer{
		logger:     logger,
		counters:   map[string]*counter{},
		histograms: map[string]*histogram{},
	}
}

func toSlogAttrs(base []slog.Attr, attrs []observability.Attribute) []slog.Attr {
	for _, attr := range attrs {
		base = append(base, slog.Any(attr.Key, attr.Value))
	}
	return base
}

// StartSpan logs the span start at debug level and returns a span whose End
// logs the elapsed duration together with every attribute accumulated in
// between. The context is returned unchanged.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	o.logger.LogAttrs(ctx, slog.LevelDebug, "Span started", toSlogAttrs([]slog.Attr{
		slog.String("span", name),
		slog.String("event", "span.start"),
	}, attrs)...)

	return ctx, &span{
		name:    name,
		started: time.Now(),
		logger:  o.logger,
		attrs:   attrs,
	}
}

type span struct {
	name    string
	started time.Time
	logger  *slog.Logger
	mu      sync.Mutex
	attrs   []observability.Attribute
}

func (s *span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "Span ended", toSlogAttrs([]slog.Attr{
		slog.String("span", s.name),
		slog.String("event", "span.end"),
		slog.Duration("duration", time.Since(s.started)),
	}, s.attrs)...)
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	status := "unset"
	switch code {
	case observability.StatusOK:
		status = "ok"
	case observability.StatusError:
		status = "error"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, observability.String(observability.AttrStatus, status))
	if description != "" {
		s.attrs = append(s.attrs, observability.String(observability.AttrStatusDescription, description))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs = append(s.attrs, observability.Error(err))
	s.logger.LogAttrs(context.Background(), slog.LevelError, "Span error",
		slog.String("span", s.name),
		slog.String("event", "error"),
		slog.String("error", err.Error()),
	)
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "Span event", toSlogAttrs([]slog.Attr{
		slog.String("span", s.name),
		slog.String("event", name),
	}, attrs)...)
}

// Counter returns the counter registered under name, creating it on first
// use. The same instance comes back on every call, so call sites need not
// cache it.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.counters[name]
	if !ok {
		c = &counter{name: name, logger: o.logger}
		o.counters[name] = c
	}
	return c
}

// Histogram returns the histogram registered under name, creating it on
// first use.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()

	h, ok := o.histograms[name]
	if !ok {
		h = &histogram{name: name, logger: o.logger}
		o.histograms[name] = h
	}
	return h
}

type counter struct {
	name   string
	logger *slog.Logger
	mu     sync.Mutex
	total  int64
}

// Add accumulates and logs the delta together with the running total.
func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.mu.Lock()
	c.total += value
	total := c.total
	c.mu.Unlock()

	c.logger.LogAttrs(ctx, slog.LevelDebug, "Counter", toSlogAttrs([]slog.Attr{
		slog.String("metric", c.name),
		slog.String("type", "counter"),
		slog.Int64("value", total),
		slog.Int64("delta", value),
	}, attrs)...)
}

type histogram struct {
	name   string
	logger *slog.Logger
}

// Record logs one observation.
func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.logger.LogAttrs(ctx, slog.LevelDebug, "Histogram", toSlogAttrs([]slog.Attr{
		slog.String("metric", h.name),
		slog.String("type", "histogram"),
		slog.Float64("value", value),
	}, attrs)...)
}

func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, LevelTrace, msg, attrs)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs)
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs []observability.Attribute) {
	o.logger.LogAttrs(ctx, level, msg, toSlogAttrs(nil, attrs)...)
}
