package transcode

import (
	"context"
	"time"

	"ghosthub/internal/ghoststream"
)

// MediaIdentity identifies one logical media item independent of how
// many times playback is requested. It is the registry key for job
// deduplication.
type MediaIdentity struct {
	CategoryID string
	Filename   string
}

func (id MediaIdentity) String() string {
	return id.CategoryID + "/" + id.Filename
}

// Options control how a transcode job is started.
type Options struct {
	Mode             ghoststream.Mode
	Format           string
	Resolution       string
	VideoCodec       string
	AudioCodec       string
	Bitrate          string
	HWAccel          string
	StartTime        float64
	ToneMap          bool
	TwoPass          bool
	MaxAudioChannels int

	// Force requests transcoding even when the filename heuristic says
	// the file is already browser-compatible.
	Force bool

	// WaitTimeout caps how long PlaybackURL waits for a stream URL
	// before falling back to the original file. Zero means the default.
	WaitTimeout time.Duration
}

// DefaultWaitTimeout is how long a playback request waits for a job to
// become streamable before degrading to the original file.
const DefaultWaitTimeout = 60 * time.Second

// withDefaults fills in mode-specific defaults without mutating o.
func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ghoststream.ModeStream
	}

	switch o.Mode {
	case ghoststream.ModeStream:
		o.Format = "hls"
	case ghoststream.ModeABR:
		// ABR generates its own variant ladder from the source.
		o.Format = "hls"
		o.Resolution = "original"
	case ghoststream.ModeBatch:
		if o.Format == "" {
			o.Format = "mp4"
		}
	}

	if o.Resolution == "" {
		o.Resolution = "1080p"
	}
	if o.VideoCodec == "" {
		o.VideoCodec = "h264"
	}
	if o.AudioCodec == "" {
		o.AudioCodec = "aac"
	}
	if o.Bitrate == "" {
		o.Bitrate = "auto"
	}
	if o.HWAccel == "" {
		o.HWAccel = "auto"
	}
	if o.MaxAudioChannels == 0 {
		o.MaxAudioChannels = 2
	}
	if o.WaitTimeout == 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}

	return o
}

// FileRef describes the file a caller wants to play.
type FileRef struct {
	Name string
	URL  string
}

// PlaybackResult is what a playback request resolves to.
type PlaybackResult struct {
	URL        string `json:"url"`
	Transcoded bool   `json:"transcoded"`
	JobID      string `json:"jobId,omitempty"`
}

// BatchJob is one entry in a batch monitoring set.
type BatchJob struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
}

// BatchAllComplete is the synthetic status reported once every job in a
// monitored batch has finished.
const BatchAllComplete = "all_complete"

// ProgressFunc receives job status updates. During a batch monitor run
// it is called once per still-pending job per cycle with the job
// payload, and exactly once with a nil job and status BatchAllComplete
// when the pending set drains.
type ProgressFunc func(job *ghoststream.Job, status string)

// HistoryRecorder persists job lifecycle events. Implementations must
// be best-effort: recording failures never affect orchestration.
type HistoryRecorder interface {
	RecordEvent(ctx context.Context, jobID, categoryID, filename, mode, status, detail string)
}

// MaterializeFunc downloads a finished batch job's output into
// permanent storage.
type MaterializeFunc func(ctx context.Context, job *ghoststream.Job, identity MediaIdentity, filename string) error
