// Package history persists transcode job lifecycle events to SQLite.
//
// Recording is strictly best-effort: a write failure is logged and
// swallowed so orchestration never depends on the database being
// healthy. Reads back the event log for the history API and the
// per-status summary endpoint.
package history
