// Command histctl provides a CLI utility for inspecting and maintaining
// the GhostHub job history database.
//
// It supports the following operations:
//   - stats: Show event counts grouped by status
//   - recent: Show the most recent job events
//   - prune: Delete events older than a given age
//
// Usage:
//
//	histctl <command> [args]
//
// Commands:
//
//	stats        Print the total event count, a per-status breakdown,
//	             and the timestamps of the oldest and newest events.
//
//	recent [n]   Print the n most recent job events, newest first.
//	             Defaults to 20.
//
//	prune [age]  Delete events older than the given age, expressed in
//	             Go duration syntax (e.g. 720h). Defaults to 720h.
//	             The running server prunes on its own schedule; this
//	             command is for one-off cleanup of large logs.
//
// Environment:
//
//	DATA_DIR - Path to data directory (default: /data)
//
// Notes:
//
// The history database is safe to inspect while the server is running;
// it is opened in WAL mode. Prune takes a write lock briefly, so very
// large deletes are best run during quiet periods.
package main
