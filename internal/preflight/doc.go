// Package preflight provides readiness checks for the filesystem paths and
// external services photodock depends on.
//
// The CLI "photodock check" command prints every result, and "photodock
// ingest" runs the same checks first so a misconfigured asset or record store
// fails fast instead of after the archive has been extracted.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
