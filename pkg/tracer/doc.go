// Package tracer configures OpenTelemetry tracing for the listings
// catalog service.
//
// NewClient builds a TracerProvider with the service's resource
// attributes, registers it as the global provider, and sets up W3C
// trace-context propagation. Span export over OTLP HTTP is optional and
// driven by TRACER_ENABLE_EXPORT; the exporter endpoint comes from the
// standard OTEL_EXPORTER_OTLP_* variables.
//
// The Tracer type offers small helpers on top of the provider:
// StartSpan, RecordErrorOnSpan, and SetAttributes. The FXModule ties
// provider shutdown (flushing batched spans) to application stop.
package tracer
