package ghoststream

// Status is the remote state of a transcoding job.
type Status string

const (
	// StatusQueued means the job is waiting for a transcoder slot.
	StatusQueued Status = "queued"
	// StatusProcessing means the job is actively transcoding.
	StatusProcessing Status = "processing"
	// StatusReady means the job finished successfully.
	StatusReady Status = "ready"
	// StatusError means the job failed; ErrorMessage carries the cause.
	StatusError Status = "error"
	// StatusCancelled means the job was cancelled.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further remote transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError || s == StatusCancelled
}

// Mode selects how the remote server transcodes a source.
type Mode string

const (
	// ModeStream produces a single-quality live HLS stream.
	ModeStream Mode = "stream"
	// ModeABR produces adaptive-bitrate HLS with multiple variants.
	ModeABR Mode = "abr"
	// ModeBatch produces a whole-file output with a download URL.
	ModeBatch Mode = "batch"
)

// Job is a transcoding job as reported by the GhostStream server.
type Job struct {
	JobID        string  `json:"job_id"`
	Status       Status  `json:"status"`
	Mode         Mode    `json:"mode,omitempty"`
	Progress     float64 `json:"progress"`
	StreamURL    string  `json:"stream_url,omitempty"`
	DownloadURL  string  `json:"download_url,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	HWAccelUsed  string  `json:"hw_accel_used,omitempty"`
	ETASeconds   float64 `json:"eta_seconds,omitempty"`
	CurrentTime  float64 `json:"current_time,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
}

// Playable reports whether the job can be consumed right now: either a
// stream manifest exists or a batch output finished.
func (j *Job) Playable() bool {
	return j.StreamURL != "" || (j.Status == StatusReady && j.DownloadURL != "")
}

// StartRequest describes a transcode to start on the remote server.
type StartRequest struct {
	Source           string
	Mode             Mode
	Format           string
	VideoCodec       string
	AudioCodec       string
	Resolution       string
	Bitrate          string
	HWAccel          string
	StartTime        float64
	ToneMap          bool
	TwoPass          bool
	MaxAudioChannels int
	CallbackURL      string
}

// startBody is the wire shape of a start request.
type startBody struct {
	Source      string     `json:"source"`
	Mode        Mode       `json:"mode"`
	Output      outputBody `json:"output"`
	StartTime   float64    `json:"start_time"`
	CallbackURL string     `json:"callback_url,omitempty"`
}

type outputBody struct {
	Format           string `json:"format"`
	VideoCodec       string `json:"video_codec"`
	AudioCodec       string `json:"audio_codec"`
	Resolution       string `json:"resolution"`
	Bitrate          string `json:"bitrate"`
	HWAccel          string `json:"hw_accel"`
	ToneMap          bool   `json:"tone_map"`
	TwoPass          bool   `json:"two_pass"`
	MaxAudioChannels int    `json:"max_audio_channels"`
}

// Capabilities describes what a GhostStream server can do.
type Capabilities struct {
	Version     string   `json:"version,omitempty"`
	HWAccels    []string `json:"hw_accels,omitempty"`
	VideoCodecs []string `json:"video_codecs,omitempty"`
	MaxJobs     int      `json:"max_jobs,omitempty"`
}
