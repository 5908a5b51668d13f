// Package otel publishes Authority metrics as OpenTelemetry observable
// instruments. The caller owns the MeterProvider and passes a Meter to
// [NewExporter]; one callback reads the Authority snapshot per collection.
package otel
