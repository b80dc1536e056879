// Package main hosts the framecloak CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot encode and decode runs, the
// HTTP server, key management, journal history, session housekeeping, and
// configuration scaffolding. Configuration resolution, logger construction,
// and pipeline wiring live in commandContext so subcommands stay declarative.
package main
