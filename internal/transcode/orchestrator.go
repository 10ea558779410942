package transcode

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"ghosthub/internal/ghoststream"
	"ghosthub/internal/logging"
	"ghosthub/internal/metrics"
)

// DefaultBatchInterval is the delay between batch monitoring cycles.
const DefaultBatchInterval = 3 * time.Second

const teardownTimeout = 10 * time.Second

// Service is the slice of the GhostStream client the orchestrator uses.
type Service interface {
	StatusFetcher
	Available() bool
	StartTranscode(ctx context.Context, req ghoststream.StartRequest) (*ghoststream.Job, error)
	CancelJob(ctx context.Context, jobID string) error
	DeleteJob(ctx context.Context, jobID string) error
}

// OrchestratorConfig wires an Orchestrator's collaborators.
type OrchestratorConfig struct {
	Client   Service
	Registry *Registry
	Poller   *Poller

	// SourceURL builds the URL from which the remote server fetches the
	// original file for an identity.
	SourceURL func(MediaIdentity) string

	// History, Progress, and Materialize are optional.
	History     HistoryRecorder
	Progress    ProgressFunc
	Materialize MaterializeFunc

	// BatchInterval overrides the batch monitoring cycle delay (tests).
	BatchInterval time.Duration
}

// Orchestrator composes the registry and poller into the operations
// playback consumers call. One instance exists per process; Teardown
// must be called at shutdown so no remote jobs are leaked.
type Orchestrator struct {
	client      Service
	registry    *Registry
	poller      *Poller
	sourceURL   func(MediaIdentity) string
	history     HistoryRecorder
	progress    ProgressFunc
	materialize MaterializeFunc

	batchInterval time.Duration

	// flight serializes concurrent Start calls per identity so exactly
	// one remote creation request is issued and every caller observes
	// the same job.
	flight singleflight.Group
}

// NewOrchestrator creates an Orchestrator from cfg.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	interval := cfg.BatchInterval
	if interval <= 0 {
		interval = DefaultBatchInterval
	}

	return &Orchestrator{
		client:        cfg.Client,
		registry:      cfg.Registry,
		poller:        cfg.Poller,
		sourceURL:     cfg.SourceURL,
		history:       cfg.History,
		progress:      cfg.Progress,
		materialize:   cfg.Materialize,
		batchInterval: interval,
	}
}

// Available reports whether the remote transcoding service is usable.
func (o *Orchestrator) Available() bool {
	return o.client.Available()
}

// Registry returns the job registry, for status endpoints.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Start begins a transcode job for identity, or returns the job already
// in flight for it. Returns nil on failure, leaving no registry entry,
// so a later retry is not blocked.
func (o *Orchestrator) Start(ctx context.Context, identity MediaIdentity, opts Options) *ghoststream.Job {
	opts = opts.withDefaults()

	v, err, _ := o.flight.Do(identity.String(), func() (interface{}, error) {
		if job, ok := o.registry.Reserve(identity); ok {
			logging.Debug("reusing in-flight job %s for %s", job.JobID, identity)
			metrics.TranscodeJobsTotal.WithLabelValues("reused").Inc()
			return job, nil
		}

		job, err := o.client.StartTranscode(ctx, ghoststream.StartRequest{
			Source:           o.sourceURL(identity),
			Mode:             opts.Mode,
			Format:           opts.Format,
			VideoCodec:       opts.VideoCodec,
			AudioCodec:       opts.AudioCodec,
			Resolution:       opts.Resolution,
			Bitrate:          opts.Bitrate,
			HWAccel:          opts.HWAccel,
			StartTime:        opts.StartTime,
			ToneMap:          opts.ToneMap,
			TwoPass:          opts.TwoPass,
			MaxAudioChannels: opts.MaxAudioChannels,
		})
		if err != nil {
			return nil, err
		}

		o.registry.Register(identity, job)
		metrics.TranscodeJobsTotal.WithLabelValues("started").Inc()
		o.record(ctx, job.JobID, identity, string(opts.Mode), "started", "")
		logging.Info("started %s transcode job %s for %s", opts.Mode, job.JobID, identity)

		return job, nil
	})
	if err != nil {
		logging.Warn("failed to start transcode for %s: %v", identity, err)
		metrics.TranscodeJobsTotal.WithLabelValues("start_failed").Inc()
		o.record(ctx, "", identity, string(opts.Mode), "start_failed", err.Error())
		return nil
	}

	return v.(*ghoststream.Job)
}

// PlaybackURL starts (or reuses) a job for identity and waits for it to
// become streamable. Every failure along the way degrades to the
// original file URL; this method never reports an error to the caller.
func (o *Orchestrator) PlaybackURL(ctx context.Context, file FileRef, identity MediaIdentity, opts Options) PlaybackResult {
	opts = opts.withDefaults()
	original := PlaybackResult{URL: file.URL, Transcoded: false}

	job := o.Start(ctx, identity, opts)
	if job == nil {
		metrics.PlaybackFallbacksTotal.WithLabelValues("start_failed").Inc()
		return original
	}

	if job.StreamURL != "" {
		return PlaybackResult{URL: job.StreamURL, Transcoded: true, JobID: job.JobID}
	}

	final := o.poller.PollUntilReady(ctx, job.JobID, func(j *ghoststream.Job) {
		o.notify(j, string(j.Status))
	}, opts.WaitTimeout)

	if final != nil && final.StreamURL != "" {
		metrics.TranscodeJobsTotal.WithLabelValues("ready").Inc()
		o.record(ctx, final.JobID, identity, string(opts.Mode), "ready", "")
		return PlaybackResult{URL: final.StreamURL, Transcoded: true, JobID: final.JobID}
	}

	// Timeout, poll failure, or a job-side error: the distinction only
	// matters for operators, the caller always gets the original back.
	if final != nil && final.Status == ghoststream.StatusError {
		logging.Warn("transcode job %s failed: %s", final.JobID, final.ErrorMessage)
		metrics.TranscodeJobsTotal.WithLabelValues("error").Inc()
		o.record(ctx, final.JobID, identity, string(opts.Mode), "error", final.ErrorMessage)
	}
	metrics.PlaybackFallbacksTotal.WithLabelValues("wait_failed").Inc()
	return original
}

// Cancel stops polling for jobID, cancels it remotely, and releases its
// registry entry. Remote failures are logged, not propagated.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) {
	o.poller.Cancel(jobID)

	if err := o.client.CancelJob(ctx, jobID); err != nil {
		logging.Warn("failed to cancel job %s: %v", jobID, err)
	}

	if identity, ok := o.registry.ReleaseJob(jobID); ok {
		metrics.TranscodeJobsTotal.WithLabelValues("cancelled").Inc()
		o.record(ctx, jobID, identity, "", "cancelled", "")
	}
}

// Delete cancels jobID and asks the remote server to clean up its
// files. Deletion is advisory: failures are logged and swallowed.
func (o *Orchestrator) Delete(ctx context.Context, jobID string) {
	o.Cancel(ctx, jobID)

	if err := o.client.DeleteJob(ctx, jobID); err != nil {
		logging.Warn("failed to delete job %s: %v", jobID, err)
	}
}

// MonitorBatch watches a set of batch jobs until all of them finish.
//
// Each cycle it checks every still-pending job: ready jobs with a
// download URL are materialized exactly once and removed from the set;
// failed or cancelled jobs are dropped without retry. When the set
// drains, onProgress receives a final (nil, BatchAllComplete) call.
// The run also stops when ctx is cancelled.
func (o *Orchestrator) MonitorBatch(ctx context.Context, jobs []BatchJob, identity MediaIdentity, onProgress ProgressFunc) {
	pending := make(map[string]string, len(jobs))
	for _, j := range jobs {
		pending[j.JobID] = j.Filename
	}

	ticker := time.NewTicker(o.batchInterval)
	defer ticker.Stop()

	for len(pending) > 0 {
		for jobID, filename := range pending {
			job, err := o.client.JobStatus(ctx, jobID)
			if err != nil {
				if errors.Is(err, ghoststream.ErrJobNotFound) {
					logging.Warn("batch job %s disappeared, dropping", jobID)
					delete(pending, jobID)
					o.registry.ReleaseJob(jobID)
				} else {
					// Transient fetch errors leave the job pending for
					// the next cycle.
					logging.Debug("batch status check for %s failed: %v", jobID, err)
				}
				continue
			}

			if onProgress != nil {
				onProgress(job, string(job.Status))
			}
			o.notify(job, string(job.Status))

			switch {
			case job.Status == ghoststream.StatusReady && job.DownloadURL != "":
				o.materializeBatchJob(ctx, job, identity, filename)
				delete(pending, jobID)
				o.registry.ReleaseJob(jobID)

			case job.Status == ghoststream.StatusError, job.Status == ghoststream.StatusCancelled:
				logging.Warn("batch job %s for %s ended %s: %s", jobID, filename, job.Status, job.ErrorMessage)
				metrics.BatchJobsTotal.WithLabelValues("failed").Inc()
				o.record(ctx, jobID, identity, string(ghoststream.ModeBatch), string(job.Status), job.ErrorMessage)
				delete(pending, jobID)
				o.registry.ReleaseJob(jobID)
			}
		}

		if len(pending) == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	if onProgress != nil {
		onProgress(nil, BatchAllComplete)
	}
	o.notify(nil, BatchAllComplete)
}

func (o *Orchestrator) materializeBatchJob(ctx context.Context, job *ghoststream.Job, identity MediaIdentity, filename string) {
	if o.materialize == nil {
		return
	}

	if err := o.materialize(ctx, job, identity, filename); err != nil {
		logging.Error("failed to materialize batch job %s (%s): %v", job.JobID, filename, err)
		metrics.BatchJobsTotal.WithLabelValues("failed").Inc()
		o.record(ctx, job.JobID, identity, string(ghoststream.ModeBatch), "materialize_failed", err.Error())
		return
	}

	metrics.BatchJobsTotal.WithLabelValues("downloaded").Inc()
	o.record(ctx, job.JobID, identity, string(ghoststream.ModeBatch), "downloaded", filename)
}

// Teardown cancels every poll loop and best-effort deletes every
// tracked job. It never panics; it is called exactly once at shutdown.
func (o *Orchestrator) Teardown() {
	active := o.registry.Snapshot()
	logging.Info("Tearing down transcode orchestrator (%d active jobs)", len(active))

	o.poller.CancelAll()

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	for identity, job := range active {
		if err := o.client.DeleteJob(ctx, job.JobID); err != nil {
			logging.Warn("failed to delete job %s during teardown: %v", job.JobID, err)
		}
		o.registry.Release(identity)
	}
}

// record writes a history event if a recorder is configured.
func (o *Orchestrator) record(ctx context.Context, jobID string, identity MediaIdentity, mode, status, detail string) {
	if o.history != nil {
		o.history.RecordEvent(ctx, jobID, identity.CategoryID, identity.Filename, mode, status, detail)
	}
}

// notify forwards a progress event if a hook is configured.
func (o *Orchestrator) notify(job *ghoststream.Job, status string) {
	if o.progress != nil {
		o.progress(job, status)
	}
}
