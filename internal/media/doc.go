// Package media defines the transient photo value that flows through the
// ingest pipeline together with the extension filter and content-type
// classification shared by every source.
package media
