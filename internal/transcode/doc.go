// Package transcode orchestrates remote transcoding jobs for media
// playback.
//
// The Orchestrator is the single process-wide owner of all job state:
// a Registry deduplicates jobs per media identity (at most one
// in-flight job per category/filename pair), a Poller drives periodic
// status checks with cancellable per-job loops, and a Resolver decides
// whether a file needs transcoding at all.
//
// The overriding policy is that playback never hard-fails because of
// transcoding: every failure along the start/poll path degrades to the
// original file URL. Operators observe the degradation through the
// fallback metrics rather than clients seeing errors.
package transcode
