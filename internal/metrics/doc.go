// Package metrics defines the Prometheus collectors exported by the
// GhostHub transcode server.
//
// All metrics are registered with the default registry via promauto and
// exposed on the /metrics endpoint. The playback fallback counter exists
// because transcoding failures are deliberately invisible to clients:
// playback always degrades to the original file, so this counter is the
// only operator-facing signal of how often that happens.
package metrics
