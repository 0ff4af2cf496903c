// Package config loads, normalizes, and validates photodock configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for secrets
// such as PHOTODOCK_S3_SECRET_KEY. The Config type centralizes every knob the
// ingest pipeline and CLI need: batch sizes, crop geometry, the detection and
// background-removal endpoints, the asset store, and the record store.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
