package transcode

import (
	"context"
	"sync"
	"time"

	"ghosthub/internal/ghoststream"
	"ghosthub/internal/logging"
	"ghosthub/internal/metrics"
)

// DefaultPollInterval is the fixed delay between job status checks.
const DefaultPollInterval = time.Second

// StatusFetcher is the slice of the GhostStream client the poller needs.
type StatusFetcher interface {
	JobStatus(ctx context.Context, jobID string) (*ghoststream.Job, error)
}

// pollLoop is the cancellation handle for one running poll loop.
type pollLoop struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (l *pollLoop) cancel() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// Poller drives periodic status checks for transcode jobs.
//
// At most one loop runs per job id; starting a new loop for a job first
// cancels the existing one. Cancellation is synchronous: once Cancel
// returns, no further status fetch for that job will be issued.
type Poller struct {
	client   StatusFetcher
	interval time.Duration

	mu    sync.Mutex
	loops map[string]*pollLoop
}

// NewPoller creates a Poller that checks status every interval. An
// interval of zero means DefaultPollInterval.
func NewPoller(client StatusFetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		interval: interval,
		loops:    make(map[string]*pollLoop),
	}
}

// PollUntilReady polls jobID until it becomes playable, reaches a
// terminal state, times out, or is cancelled.
//
// onProgress is invoked with every fetched status, including
// non-terminal ones, so callers can surface progress. The return value
// distinguishes outcomes the way callers need them:
//   - a job with a stream URL: playable (even while still processing)
//   - a job in a terminal state: the caller inspects Status/ErrorMessage
//   - nil: timeout, cancellation, or a failed status fetch
//
// A single failed status fetch aborts the wait; there is no
// retry-on-transient-failure here because the caller's fallback (serve
// the original file) is cheaper than a stalled playback request.
func (p *Poller) PollUntilReady(ctx context.Context, jobID string, onProgress func(*ghoststream.Job), timeout time.Duration) *ghoststream.Job {
	loop := p.begin(jobID)
	defer p.finish(jobID, loop)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		metrics.PollTicksTotal.Inc()

		job, err := p.client.JobStatus(ctx, jobID)
		if err != nil {
			logging.Warn("status check for job %s failed, aborting wait: %v", jobID, err)
			return nil
		}

		if onProgress != nil {
			onProgress(job)
		}

		if job.StreamURL != "" {
			// Streaming jobs are consumable the moment the manifest
			// exists, regardless of reported state.
			return job
		}
		if job.Status.Terminal() {
			return job
		}

		select {
		case <-ctx.Done():
			return nil
		case <-loop.stop:
			return nil
		case <-deadline.C:
			logging.Warn("timed out waiting for job %s", jobID)
			return nil
		case <-ticker.C:
			// A cancel that raced the tick wins.
			select {
			case <-loop.stop:
				return nil
			default:
			}
		}
	}
}

// Cancel stops the poll loop for jobID, if one is running, and returns
// only after the loop has fully stopped.
func (p *Poller) Cancel(jobID string) {
	p.mu.Lock()
	loop, ok := p.loops[jobID]
	p.mu.Unlock()

	if ok {
		loop.cancel()
	}
}

// CancelAll stops every running poll loop.
func (p *Poller) CancelAll() {
	p.mu.Lock()
	loops := make([]*pollLoop, 0, len(p.loops))
	for _, loop := range p.loops {
		loops = append(loops, loop)
	}
	p.mu.Unlock()

	for _, loop := range loops {
		loop.cancel()
	}
}

// Active returns the number of running poll loops.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.loops)
}

// begin registers a new loop handle for jobID, cancelling any loop
// already running for it.
func (p *Poller) begin(jobID string) *pollLoop {
	for {
		p.mu.Lock()
		existing, ok := p.loops[jobID]
		if !ok {
			loop := &pollLoop{
				stop: make(chan struct{}),
				done: make(chan struct{}),
			}
			p.loops[jobID] = loop
			p.mu.Unlock()
			metrics.PollLoopsActive.Inc()
			return loop
		}
		p.mu.Unlock()

		existing.cancel()
	}
}

func (p *Poller) finish(jobID string, loop *pollLoop) {
	p.mu.Lock()
	if p.loops[jobID] == loop {
		delete(p.loops, jobID)
	}
	p.mu.Unlock()

	close(loop.done)
	metrics.PollLoopsActive.Dec()
}
