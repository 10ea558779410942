package ghoststream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"192.168.4.2:8765", "http://192.168.4.2:8765"},
		{"http://192.168.4.2:8765", "http://192.168.4.2:8765"},
		{"https://ghoststream.local:9000/", "http://ghoststream.local:9000"},
		{"ghoststream.local", "http://ghoststream.local:8765"},
		{"  host:1234  ", "http://host:1234"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeAddr(tt.input); got != tt.want {
			t.Errorf("normalizeAddr(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClient_NotConfigured(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		enabled bool
	}{
		{"disabled", "host:8765", false},
		{"no address", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.addr, tt.enabled)

			if c.Available() {
				t.Error("Available() = true, want false")
			}

			if _, err := c.StartTranscode(context.Background(), StartRequest{}); !errors.Is(err, ErrNotConfigured) {
				t.Errorf("StartTranscode error = %v, want ErrNotConfigured", err)
			}
			if _, err := c.JobStatus(context.Background(), "j1"); !errors.Is(err, ErrNotConfigured) {
				t.Errorf("JobStatus error = %v, want ErrNotConfigured", err)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), true)
	return c, srv
}

func TestClient_StartTranscode(t *testing.T) {
	var gotBody map[string]interface{}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/transcode/start" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		writeJobJSON(w, map[string]interface{}{
			"job_id":   "j1",
			"status":   "processing",
			"progress": 0,
		})
	}))

	job, err := c.StartTranscode(context.Background(), StartRequest{
		Source:           "http://ghosthub/media/c1/movie.mkv",
		Mode:             ModeStream,
		Format:           "hls",
		VideoCodec:       "h264",
		AudioCodec:       "aac",
		Resolution:       "1080p",
		Bitrate:          "auto",
		HWAccel:          "auto",
		ToneMap:          true,
		MaxAudioChannels: 2,
	})
	if err != nil {
		t.Fatalf("StartTranscode() error: %v", err)
	}

	if job.JobID != "j1" {
		t.Errorf("JobID = %q, want j1", job.JobID)
	}
	if job.Status != StatusProcessing {
		t.Errorf("Status = %q, want processing", job.Status)
	}
	// Mode is filled from the request when the server omits it.
	if job.Mode != ModeStream {
		t.Errorf("Mode = %q, want stream", job.Mode)
	}

	if gotBody["source"] != "http://ghosthub/media/c1/movie.mkv" {
		t.Errorf("request source = %v", gotBody["source"])
	}
	output, ok := gotBody["output"].(map[string]interface{})
	if !ok {
		t.Fatalf("request body missing output object: %v", gotBody)
	}
	if output["format"] != "hls" || output["resolution"] != "1080p" {
		t.Errorf("request output = %v", output)
	}
}

func TestClient_StartTranscode_ServerError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := c.StartTranscode(context.Background(), StartRequest{Mode: ModeStream}); err == nil {
		t.Fatal("StartTranscode() error = nil, want non-nil")
	}
}

func TestClient_JobStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/transcode/j1/status" {
			http.NotFound(w, r)
			return
		}
		writeJobJSON(w, map[string]interface{}{
			"job_id":     "j1",
			"status":     "processing",
			"progress":   42.5,
			"stream_url": "http://x/j1.m3u8",
		})
	}))

	job, err := c.JobStatus(context.Background(), "j1")
	if err != nil {
		t.Fatalf("JobStatus() error: %v", err)
	}

	if job.Progress != 42.5 {
		t.Errorf("Progress = %f, want 42.5", job.Progress)
	}
	if job.StreamURL != "http://x/j1.m3u8" {
		t.Errorf("StreamURL = %q", job.StreamURL)
	}

	if _, err := c.JobStatus(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("JobStatus(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestClient_CancelAndDelete(t *testing.T) {
	var cancelled, deleted bool

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/transcode/j1/cancel":
			cancelled = true
		case r.Method == http.MethodDelete && r.URL.Path == "/api/transcode/j1":
			deleted = true
		default:
			http.NotFound(w, r)
		}
	}))

	if err := c.CancelJob(context.Background(), "j1"); err != nil {
		t.Errorf("CancelJob() error: %v", err)
	}
	if err := c.DeleteJob(context.Background(), "j1"); err != nil {
		t.Errorf("DeleteJob() error: %v", err)
	}

	if !cancelled || !deleted {
		t.Errorf("cancelled = %v, deleted = %v, want both true", cancelled, deleted)
	}
}

func TestClient_HealthAndAvailability(t *testing.T) {
	healthy := true
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		if !healthy {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		}
	}))

	// Before any health check, the client is pessimistic.
	if c.Available() {
		t.Error("Available() = true before first health check")
	}

	if !c.RefreshHealth(context.Background()) {
		t.Fatal("RefreshHealth() = false, want true")
	}
	if !c.Available() {
		t.Error("Available() = false after passing health check")
	}

	healthy = false
	if c.RefreshHealth(context.Background()) {
		t.Fatal("RefreshHealth() = true, want false")
	}
	if c.Available() {
		t.Error("Available() = true after failing health check")
	}
}

func TestClient_Download(t *testing.T) {
	content := "transcoded video bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(content)); err != nil {
			t.Errorf("write failed: %v", err)
		}
	}))
	defer srv.Close()

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), true)
	dest := filepath.Join(t.TempDir(), "out", "movie.mp4")

	written, err := c.Download(context.Background(), srv.URL+"/output/j1.mp4", dest)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if written != int64(len(content)) {
		t.Errorf("written = %d, want %d", written, len(content))
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(data) != content {
		t.Errorf("downloaded content = %q, want %q", data, content)
	}

	// No partial file left behind.
	if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
		t.Errorf("partial file still exists: %v", err)
	}
}

func TestClient_Download_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), true)
	dest := filepath.Join(t.TempDir(), "movie.mp4")

	if _, err := c.Download(context.Background(), srv.URL+"/output/j1.mp4", dest); err == nil {
		t.Fatal("Download() error = nil, want non-nil")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination file exists after failed download")
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusQueued, false},
		{StatusProcessing, false},
		{StatusReady, true},
		{StatusError, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Status(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func writeJobJSON(w http.ResponseWriter, v map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
