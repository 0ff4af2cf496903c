// Package assets stores uploaded photos and fronts the remote
// background-removal service.
//
// Store is the contract consumed by the upload coordinator. S3Store writes to
// any S3-compatible bucket through minio-go and records the requested
// transform options as object metadata; LocalStore writes beneath a
// directory for single-machine setups and tests. Object keys group photos by
// destination and record so re-runs never overwrite an earlier upload.
package assets
