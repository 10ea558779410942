package transcode

import (
	"context"
	"path/filepath"
	"strings"

	"ghosthub/internal/logging"
	"ghosthub/internal/metrics"
)

// transcodeExtensions are container formats browsers do not play
// natively. Files with these extensions always go through transcoding
// when the service is available.
var transcodeExtensions = map[string]bool{
	".mkv":  true,
	".avi":  true,
	".wmv":  true,
	".flv":  true,
	".m4v":  true,
	".mov":  true,
	".ts":   true,
	".m2ts": true,
	".vob":  true,
	".mpg":  true,
	".mpeg": true,
	".mts":  true,
	".divx": true,
	".asf":  true,
	".rm":   true,
	".rmvb": true,
	".3gp":  true,
}

// hevcIndicators mark releases encoded with H.265, which most browsers
// cannot decode even inside an otherwise playable container.
var hevcIndicators = []string{"hevc", "h265", "x265"}

// NeedsTranscoding reports whether filename likely requires transcoding
// for browser playback. It is a pure filename heuristic; it never
// touches the file.
func NeedsTranscoding(filename string) bool {
	if transcodeExtensions[strings.ToLower(filepath.Ext(filename))] {
		return true
	}

	lower := strings.ToLower(filename)
	for _, indicator := range hevcIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// MaterializedName is the on-disk name of a finished batch output for
// filename. Batch outputs are always remuxed into mp4.
func MaterializedName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".mp4"
}

// Resolver is the playback entry point. It gates transcoding on service
// availability, configuration, and the filename heuristic, then
// delegates to the orchestrator. Resolve never returns an error: the
// worst outcome is the original file URL.
type Resolver struct {
	orch          *Orchestrator
	autoTranscode bool
}

// NewResolver creates a Resolver. When autoTranscode is false, only
// requests with Options.Force set go through transcoding.
func NewResolver(orch *Orchestrator, autoTranscode bool) *Resolver {
	return &Resolver{orch: orch, autoTranscode: autoTranscode}
}

// Resolve decides how file should be played and returns a playable URL.
func (r *Resolver) Resolve(ctx context.Context, file FileRef, identity MediaIdentity, opts Options) PlaybackResult {
	original := PlaybackResult{URL: file.URL, Transcoded: false}
	wanted := opts.Force || NeedsTranscoding(file.Name)

	if !r.orch.Available() {
		if wanted {
			logging.Debug("transcoding unavailable, serving %s directly", file.Name)
			metrics.PlaybackFallbacksTotal.WithLabelValues("unavailable").Inc()
		}
		metrics.PlaybackRequestsTotal.WithLabelValues("false").Inc()
		return original
	}

	if !r.autoTranscode && !opts.Force {
		if NeedsTranscoding(file.Name) {
			metrics.PlaybackFallbacksTotal.WithLabelValues("disabled").Inc()
		}
		metrics.PlaybackRequestsTotal.WithLabelValues("false").Inc()
		return original
	}

	if !wanted {
		metrics.PlaybackRequestsTotal.WithLabelValues("false").Inc()
		return original
	}

	result := r.orch.PlaybackURL(ctx, file, identity, opts)
	if result.Transcoded {
		metrics.PlaybackRequestsTotal.WithLabelValues("true").Inc()
	} else {
		metrics.PlaybackRequestsTotal.WithLabelValues("false").Inc()
	}
	return result
}
