// Package main hosts the photodock CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into ingest runs, record
// store maintenance, one-off crops, and run history queries. It centralizes
// configuration resolution, logger construction, and store wiring so
// subcommands stay declarative while the pipeline lives in internal packages.
package main
