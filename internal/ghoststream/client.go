package ghoststream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"ghosthub/internal/logging"
)

// DefaultPort is the port GhostStream listens on when the configured
// address does not specify one.
const DefaultPort = 8765

const (
	startTimeout    = 30 * time.Second
	statusTimeout   = 10 * time.Second
	healthTimeout   = 5 * time.Second
	downloadTimeout = 30 * time.Minute
)

// ErrNotConfigured is returned when no server address has been set.
var ErrNotConfigured = errors.New("ghoststream: no server configured")

// ErrJobNotFound is returned when the server does not know the job.
var ErrJobNotFound = errors.New("ghoststream: job not found")

// Client is an HTTP client for a single GhostStream server.
//
// Availability is the configured flag combined with the result of the
// most recent health check; RefreshHealth is expected to run
// periodically so Available stays honest without a network round trip
// on every call.
type Client struct {
	baseURL string
	enabled bool
	healthy atomic.Bool

	httpClient *http.Client
}

// NewClient creates a client for the server at addr ("host:port",
// optionally with an http:// or https:// prefix; port defaults to 8765).
// An empty addr or enabled=false yields a client that reports
// unavailable and fails all job operations with ErrNotConfigured.
func NewClient(addr string, enabled bool) *Client {
	c := &Client{
		enabled:    enabled && addr != "",
		httpClient: &http.Client{},
	}

	if addr != "" {
		c.baseURL = normalizeAddr(addr)
	}

	return c
}

// normalizeAddr turns a user-supplied server address into a base URL.
func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")

	if addr == "" {
		return ""
	}

	if !strings.Contains(addr, ":") {
		addr = addr + ":" + strconv.Itoa(DefaultPort)
	}

	return "http://" + addr
}

// BaseURL returns the server base URL, or "" if unconfigured.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Enabled returns whether the client is configured and enabled.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Available returns whether the server is enabled, configured, and
// passed its most recent health check.
func (c *Client) Available() bool {
	return c.enabled && c.baseURL != "" && c.healthy.Load()
}

// RefreshHealth performs a health check and records the result.
func (c *Client) RefreshHealth(ctx context.Context) bool {
	ok := c.HealthCheck(ctx)
	c.healthy.Store(ok)
	return ok
}

// HealthCheck reports whether the server answers its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if !c.enabled || c.baseURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Debug("ghoststream health check failed: %v", err)
		return false
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		logging.Warn("ghoststream health check returned %d", resp.StatusCode)
		return false
	}
	return true
}

// Capabilities fetches the server's capability report.
func (c *Client) Capabilities(ctx context.Context) (*Capabilities, error) {
	var caps Capabilities
	if err := c.getJSON(ctx, "/api/capabilities", statusTimeout, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// StartTranscode asks the server to start a transcoding job.
func (c *Client) StartTranscode(ctx context.Context, req StartRequest) (*Job, error) {
	if !c.enabled || c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body := startBody{
		Source:    req.Source,
		Mode:      req.Mode,
		StartTime: req.StartTime,
		Output: outputBody{
			Format:           req.Format,
			VideoCodec:       req.VideoCodec,
			AudioCodec:       req.AudioCodec,
			Resolution:       req.Resolution,
			Bitrate:          req.Bitrate,
			HWAccel:          req.HWAccel,
			ToneMap:          req.ToneMap,
			TwoPass:          req.TwoPass,
			MaxAudioChannels: req.MaxAudioChannels,
		},
		CallbackURL: req.CallbackURL,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode start request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcode/start", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcode start request failed: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcode start returned %d", resp.StatusCode)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode start response: %w", err)
	}
	if job.Mode == "" {
		job.Mode = req.Mode
	}

	return &job, nil
}

// JobStatus fetches the current status of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.getJSON(ctx, "/api/transcode/"+jobID+"/status", statusTimeout, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CancelJob asks the server to cancel a job. Best effort.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	return c.simpleRequest(ctx, http.MethodPost, "/api/transcode/"+jobID+"/cancel")
}

// DeleteJob asks the server to delete a job and its temp files. Best effort.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	return c.simpleRequest(ctx, http.MethodDelete, "/api/transcode/"+jobID)
}

// Download fetches url (typically a batch job's download URL) into the
// file at dest, creating parent directories as needed. The write goes
// through a temp file so a failed download never leaves a partial
// output behind.
func (c *Client) Download(ctx context.Context, url, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request failed: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp := dest + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logging.Warn("failed to remove partial download %s: %v", tmp, rmErr)
		}
		return 0, fmt.Errorf("download copy failed: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}

	return written, nil
}

func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, v interface{}) error {
	if !c.enabled || c.baseURL == "" {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) simpleRequest(ctx context.Context, method, path string) error {
	if !c.enabled || c.baseURL == "" {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s returned %d", method, path, resp.StatusCode)
	}
	return nil
}

func closeBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		logging.Debug("failed to drain response body: %v", err)
	}
	if err := body.Close(); err != nil {
		logging.Debug("failed to close response body: %v", err)
	}
}
