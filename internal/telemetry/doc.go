// Package telemetry exposes build metrics through a Prometheus registry and
// hands out the otel tracer used for task spans.
package telemetry
