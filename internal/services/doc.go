// Package services defines shared utilities consumed by the ingest pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, phase names, batch numbers, and the
//     media item being processed for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (per-item vs run-fatal) and persisted with a stable kind.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform across phases.
package services
