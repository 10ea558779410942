// Package handlers implements the HTTP API: playback resolution,
// transcode job control, batch operations, the playback cache,
// categories, job history, health probes, and the WebSocket event
// endpoint.
package handlers
