// Package ingest is the single entry point for a bulk photo run: it extracts
// media from a ZIP archive or a file selection, matches each item to a record
// through the lookup index, then hands the matches to the upload coordinator
// and folds everything into a Report.
//
// Extraction and matching finish for the whole source before the first
// upload batch starts, so an unreadable archive aborts the run without any
// remote side effects. Every later problem is item-scoped and lands in
// Report.Failures.
package ingest
