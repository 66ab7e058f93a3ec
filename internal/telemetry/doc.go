// Package telemetry wires OpenTelemetry tracing and metrics for autosub.
//
// Setup installs global providers: traces go to an OTLP gRPC collector
// and/or stdout, metrics are held in a manual reader and summarized at
// Shutdown. Packages obtain instruments through otel.Meter and otel.Tracer,
// so a disabled configuration costs nothing beyond the global no-op
// providers.
package telemetry
