// Package memory handles container-aware memory configuration and
// system memory pressure detection.
//
// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit so
// the Go heap leaves headroom for the rest of the process. Monitor
// reports when system memory usage crosses a configured threshold; the
// periodic cleanup sweep uses it to decide between pruning and fully
// clearing the playback cache.
package memory
