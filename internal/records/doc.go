// Package records defines the record value consumed by the ingest pipeline
// and the contract of the external record store.
//
// The pipeline only reads a record's identifying fields and writes back a
// photo reference; creating, deleting, or reshaping records belongs to the
// store. Two stores ship with photodock: the SQLite store in internal/store
// for standalone use and the Postgres store in internal/pgstore for sites
// that keep records in an existing database. ImportCSV loads rows into any
// store that implements Importer.
package records
