// Package archive turns a ZIP upload or a plain file selection into media
// items.
//
// The Extractor reads entries lazily in fixed-size batches so memory stays
// bounded for archives holding tens of thousands of photos, and offers a
// yield hook between batches so long extractions never monopolize the
// caller's goroutine. Directory entries, macOS resource forks under
// __MACOSX/, and files without an accepted image extension are skipped.
// A batch either decodes fully or the whole extraction fails with
// services.ErrArchive.
package archive
