// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, source paths, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified consistently (validation vs external tool vs transient).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
