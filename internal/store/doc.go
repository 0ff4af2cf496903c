// Package store persists photodock's local state in SQLite: the record table
// used when no external record database is configured, and the history of
// ingest runs with their per-item failures.
//
// The Store satisfies records.Store, so the ingest pipeline can read records
// and write photo references back without knowing which backend is in use.
// Run history is append-only apart from clean-up marks on failures whose
// assets were uploaded but never linked.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package store
