// Package main hosts the driveingest CLI entrypoint and command graph.
//
// The root command runs the download, process and ingest pipeline once, or
// repeatedly with --watch. Subcommands cover configuration scaffolding, the
// Drive OAuth consent flow, store status, preflight checks and a test
// notification. Wiring lives here; behaviour lives in internal packages.
package main
