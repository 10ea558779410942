// Package events pushes job progress and cache activity to connected
// browsers over WebSocket.
//
// Delivery is best-effort: a slow client's backlog is dropped rather
// than stalling the broadcaster, since every payload is a transient
// progress snapshot the next tick supersedes.
package events
