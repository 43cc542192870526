// Package observability defines the tracing, metrics and logging interfaces
// the rest of the library instruments against. [Provider] composes [Tracer],
// [Metrics] and [Logger] into one injectable dependency; spans and observers
// travel through a [context.Context] via [ContextWithSpan] and
// [ContextWithObserver]. Attribute keys and span names shared across
// providers live in semconv.go. Backends are in the slogobs and otelobs
// subpackages.
package observability
