// Package progress tracks the counters of a single ingest run and pushes
// point-in-time snapshots to observers.
//
// A Reporter is created per run and never persisted. Counters only grow;
// callers increment them as batches and upload items complete and then call
// Publish so observers (log lines, a CLI status line, Prometheus gauges) see a
// consistent Snapshot.
package progress
