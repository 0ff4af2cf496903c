// Package pgstore reads records from, and writes photo references back to, an
// existing Postgres table. Table and column names come from configuration so
// the pipeline can run against a schema it does not own; record fields live in
// a single JSONB column.
package pgstore
