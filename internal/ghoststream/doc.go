// Package ghoststream provides an HTTP client for a GhostStream
// transcoding server.
//
// GhostStream accepts transcode requests in three modes: "stream"
// (single-quality live HLS), "abr" (adaptive bitrate HLS with multiple
// variants), and "batch" (file-to-file output with a download URL).
// Jobs move through queued -> processing -> ready/error/cancelled; for
// the streaming modes a job is playable as soon as its stream URL
// appears, which usually happens while it is still processing.
//
// Cancel and delete are advisory cleanup on the remote side: callers
// treat their failures as log-worthy but never fatal.
package ghoststream
