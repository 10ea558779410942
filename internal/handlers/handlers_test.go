package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"ghosthub/internal/categories"
	"ghosthub/internal/events"
	"ghosthub/internal/ghoststream"
	"ghosthub/internal/history"
	"ghosthub/internal/memory"
	"ghosthub/internal/playbackcache"
	"ghosthub/internal/startup"
	"ghosthub/internal/transcode"
)

// fixture wires a full handler set against a mock GhostStream server
// and temp directories.
type fixture struct {
	h        *Handlers
	category categories.Category
	mediaDir string
	config   *startup.Config
}

// ghostStreamMock emulates the remote API: health always passes, start
// returns startJob, status returns statusJob.
func ghostStreamMock(startJob, statusJob map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/health":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/transcode/start":
			writeMockJSON(w, startJob)
		case strings.HasSuffix(r.URL.Path, "/status"):
			if statusJob == nil {
				http.NotFound(w, r)
				return
			}
			writeMockJSON(w, statusJob)
		case strings.HasSuffix(r.URL.Path, "/cancel"), r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}
}

func writeMockJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(err)
	}
}

func newFixture(t *testing.T, remote http.HandlerFunc) *fixture {
	t.Helper()

	dataDir := t.TempDir()
	mediaDir := t.TempDir()

	var client *ghoststream.Client
	if remote != nil {
		srv := httptest.NewServer(remote)
		t.Cleanup(srv.Close)
		client = ghoststream.NewClient(srv.URL, true)
		client.RefreshHealth(context.Background())
	} else {
		client = ghoststream.NewClient("", false)
	}

	hist, err := history.New(context.Background(), filepath.Join(dataDir, "history.db"))
	if err != nil {
		t.Fatalf("failed to create history store: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	cats, err := categories.Load(filepath.Join(dataDir, "categories.json"))
	if err != nil {
		t.Fatalf("failed to load categories: %v", err)
	}
	category, err := cats.Add("Movies", mediaDir)
	if err != nil {
		t.Fatalf("failed to add category: %v", err)
	}

	config := &startup.Config{
		Port:              "5000",
		DataDir:           dataDir,
		PublicBaseURL:     "http://localhost:5000",
		WaitTimeout:       time.Second,
		DefaultResolution: "1080p",
		DefaultVideoCodec: "h264",
		CacheCapacity:     5,
		HistoryPath:       filepath.Join(dataDir, "history.db"),
		CategoriesFile:    filepath.Join(dataDir, "categories.json"),
		DownloadDir:       filepath.Join(dataDir, "transcoded"),
	}

	orch := transcode.NewOrchestrator(transcode.OrchestratorConfig{
		Client:   client,
		Registry: transcode.NewRegistry(),
		Poller:   transcode.NewPoller(client, 5*time.Millisecond),
		SourceURL: func(id transcode.MediaIdentity) string {
			return config.PublicBaseURL + "/media/" + id.CategoryID + "/" + id.Filename
		},
		History:       hist,
		BatchInterval: 5 * time.Millisecond,
	})

	hub := events.NewHub()
	t.Cleanup(hub.Close)

	h := New(client, orch, transcode.NewResolver(orch, true),
		playbackcache.New(config.CacheCapacity), hist, cats, hub,
		memory.NewMonitor(90), config)

	return &fixture{h: h, category: category, mediaDir: mediaDir, config: config}
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, ghostStreamMock(nil, nil))

	rec := httptest.NewRecorder()
	f.h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != statusHealthy {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if !resp.TranscodingHealthy {
		t.Error("TranscodingHealthy should be true with a responding mock")
	}
}

func TestHealthCheckDegradedWhenRemoteDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newFixture(t, nil)
	// Swap in an enabled-but-unhealthy client.
	client := ghoststream.NewClient(srv.URL, true)
	client.RefreshHealth(context.Background())
	f.h.client = client

	rec := httptest.NewRecorder()
	f.h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var resp HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != statusDegraded {
		t.Errorf("Status = %q, want degraded", resp.Status)
	}
}

func TestPlaybackURLReturnsStream(t *testing.T) {
	f := newFixture(t, ghostStreamMock(map[string]interface{}{
		"job_id":     "j1",
		"status":     "processing",
		"stream_url": "/stream/j1/index.m3u8",
	}, nil))

	rec := postJSON(t, f.h.PlaybackURL, "/api/playback", map[string]string{
		"category_id": f.category.ID,
		"filename":    "movie.mkv",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result transcode.PlaybackResult
	decodeBody(t, rec, &result)
	if !result.Transcoded {
		t.Error("expected a transcoded result")
	}
	if result.URL != "/stream/j1/index.m3u8" {
		t.Errorf("URL = %q", result.URL)
	}
	if result.JobID != "j1" {
		t.Errorf("JobID = %q, want j1", result.JobID)
	}
}

func TestPlaybackURLFallsBackWhenDisabled(t *testing.T) {
	f := newFixture(t, nil)

	rec := postJSON(t, f.h.PlaybackURL, "/api/playback", map[string]string{
		"category_id": f.category.ID,
		"filename":    "movie.mkv",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even without transcoding", rec.Code)
	}

	var result transcode.PlaybackResult
	decodeBody(t, rec, &result)
	if result.Transcoded {
		t.Error("expected a fallback result")
	}
	if !strings.Contains(result.URL, "/media/"+f.category.ID+"/movie.mkv") {
		t.Errorf("URL = %q, want the original media URL", result.URL)
	}
}

func TestPlaybackURLValidation(t *testing.T) {
	f := newFixture(t, nil)

	rec := postJSON(t, f.h.PlaybackURL, "/api/playback", map[string]string{
		"filename": "movie.mkv",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing category: status = %d, want 400", rec.Code)
	}

	rec = postJSON(t, f.h.PlaybackURL, "/api/playback", map[string]string{
		"category_id": "nope",
		"filename":    "movie.mkv",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown category: status = %d, want 404", rec.Code)
	}

	rec = postJSON(t, f.h.PlaybackURL, "/api/playback", map[string]string{
		"category_id": f.category.ID,
		"filename":    "movie.mkv",
		"mode":        "holographic",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode: status = %d, want 400", rec.Code)
	}
}

func TestStartTranscodeUnavailable(t *testing.T) {
	f := newFixture(t, nil)

	rec := postJSON(t, f.h.StartTranscode, "/api/transcode/start", map[string]string{
		"category_id": f.category.ID,
		"filename":    "movie.mkv",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStartTranscodeReturnsJob(t *testing.T) {
	f := newFixture(t, ghostStreamMock(map[string]interface{}{
		"job_id": "j1",
		"status": "queued",
	}, nil))

	rec := postJSON(t, f.h.StartTranscode, "/api/transcode/start", map[string]string{
		"category_id": f.category.ID,
		"filename":    "movie.mkv",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var job ghoststream.Job
	decodeBody(t, rec, &job)
	if job.JobID != "j1" {
		t.Errorf("JobID = %q, want j1", job.JobID)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	f := newFixture(t, ghostStreamMock(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/transcode/missing/status", nil)
	req = mux.SetURLVars(req, map[string]string{"jobId": "missing"})
	rec := httptest.NewRecorder()
	f.h.JobStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCacheEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := postJSON(t, f.h.CachePut, "/api/cache", map[string]interface{}{
		"key":     "cat1/movie.mkv",
		"element": map[string]string{"name": "movie.mkv", "url": "/media/cat1/movie.mkv"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cache/cat1%2Fmovie.mkv", nil)
	req = mux.SetURLVars(req, map[string]string{"key": "cat1/movie.mkv"})
	rec = httptest.NewRecorder()
	f.h.CacheGet(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	var element playbackcache.Element
	decodeBody(t, rec, &element)
	if element.Name != "movie.mkv" {
		t.Errorf("Name = %q", element.Name)
	}

	rec = httptest.NewRecorder()
	f.h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
	var stats struct {
		Entries  int `json:"entries"`
		Capacity int `json:"capacity"`
	}
	decodeBody(t, rec, &stats)
	if stats.Entries != 1 || stats.Capacity != 5 {
		t.Errorf("stats = %+v", stats)
	}

	rec = httptest.NewRecorder()
	f.h.CacheClear(rec, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))
	if f.h.cache.Len() != 0 {
		t.Error("cache not cleared")
	}
}

func TestCacheGetMissing(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cache/nope", nil)
	req = mux.SetURLVars(req, map[string]string{"key": "nope"})
	rec := httptest.NewRecorder()
	f.h.CacheGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	extraDir := t.TempDir()

	rec := postJSON(t, f.h.AddCategory, "/api/categories", map[string]string{
		"name": "Shows",
		"path": extraDir,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created categories.Category
	decodeBody(t, rec, &created)

	rec = httptest.NewRecorder()
	f.h.ListCategories(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	var listed struct {
		Categories []categories.Category `json:"categories"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Categories) != 2 {
		t.Errorf("listed %d categories, want 2", len(listed.Categories))
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/categories/"+created.ID, nil)
	req = mux.SetURLVars(req, map[string]string{"categoryId": created.ID})
	rec = httptest.NewRecorder()
	f.h.RemoveCategory(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("remove status = %d", rec.Code)
	}
}

func TestListMedia(t *testing.T) {
	f := newFixture(t, nil)

	for _, name := range []string{"movie.mkv", "clip.mp4"} {
		if err := os.WriteFile(filepath.Join(f.mediaDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/media/"+f.category.ID, nil)
	req = mux.SetURLVars(req, map[string]string{"categoryId": f.category.ID})
	rec := httptest.NewRecorder()
	f.h.ListMedia(rec, req)

	var resp struct {
		Files []struct {
			Name             string `json:"name"`
			NeedsTranscoding bool   `json:"needs_transcoding"`
		} `json:"files"`
	}
	decodeBody(t, rec, &resp)

	if len(resp.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(resp.Files))
	}
	for _, file := range resp.Files {
		wantTranscode := file.Name == "movie.mkv"
		if file.NeedsTranscoding != wantTranscode {
			t.Errorf("%s: NeedsTranscoding = %v, want %v", file.Name, file.NeedsTranscoding, wantTranscode)
		}
	}
}

func TestServeMediaTraversalRejected(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/media/x/passwd", nil)
	req = mux.SetURLVars(req, map[string]string{
		"categoryId": f.category.ID,
		"filename":   "../../../etc/passwd",
	})
	rec := httptest.NewRecorder()
	f.h.ServeMedia(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRecentHistoryAfterPlayback(t *testing.T) {
	f := newFixture(t, ghostStreamMock(map[string]interface{}{
		"job_id":     "j1",
		"status":     "processing",
		"stream_url": "/stream/j1/index.m3u8",
	}, nil))

	postJSON(t, f.h.PlaybackURL, "/api/playback", map[string]string{
		"category_id": f.category.ID,
		"filename":    "movie.mkv",
	})

	rec := httptest.NewRecorder()
	f.h.RecentHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	var resp struct {
		Events []history.Event `json:"events"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Events) == 0 {
		t.Fatal("expected a recorded start event")
	}
	if resp.Events[0].JobID != "j1" {
		t.Errorf("JobID = %q, want j1", resp.Events[0].JobID)
	}
}

func TestStartBatchQueuesIncompatibleFiles(t *testing.T) {
	f := newFixture(t, ghostStreamMock(map[string]interface{}{
		"job_id": "b1",
		"status": "queued",
	}, map[string]interface{}{
		"job_id":       "b1",
		"status":       "ready",
		"download_url": "/download/b1",
	}))

	for _, name := range []string{"old.avi", "fine.mp4"} {
		if err := os.WriteFile(filepath.Join(f.mediaDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec := postJSON(t, f.h.StartBatch, "/api/batch/start", map[string]string{
		"category_id": f.category.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Queued     int                  `json:"queued"`
		TotalFound int                  `json:"total_found"`
		Jobs       []transcode.BatchJob `json:"jobs"`
	}
	decodeBody(t, rec, &resp)
	if resp.TotalFound != 1 {
		t.Errorf("TotalFound = %d, want 1 (only old.avi needs transcoding)", resp.TotalFound)
	}
	if resp.Queued != 1 || len(resp.Jobs) != 1 {
		t.Errorf("Queued = %d, Jobs = %v", resp.Queued, resp.Jobs)
	}
	if resp.Jobs[0].Filename != "old.avi" {
		t.Errorf("queued %q, want old.avi", resp.Jobs[0].Filename)
	}
}

func TestStartBatchSkipsMaterializedFiles(t *testing.T) {
	f := newFixture(t, ghostStreamMock(map[string]interface{}{
		"job_id": "b1",
		"status": "queued",
	}, nil))

	if err := os.WriteFile(filepath.Join(f.mediaDir, "old.avi"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(f.config.DownloadDir, f.category.ID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "old.mp4"), []byte("done"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := postJSON(t, f.h.StartBatch, "/api/batch/start", map[string]string{
		"category_id": f.category.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Queued     int `json:"queued"`
		TotalFound int `json:"total_found"`
	}
	decodeBody(t, rec, &resp)
	if resp.TotalFound != 0 || resp.Queued != 0 {
		t.Errorf("TotalFound = %d, Queued = %d, want 0 (output already materialized)",
			resp.TotalFound, resp.Queued)
	}
}

func TestServeTranscodedValidation(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/batch/transcoded/nope/old.mp4", nil)
	req = mux.SetURLVars(req, map[string]string{"categoryId": "nope", "filename": "old.mp4"})
	rec := httptest.NewRecorder()
	f.h.ServeTranscoded(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown category: status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/batch/transcoded/"+f.category.ID+"/x", nil)
	req = mux.SetURLVars(req, map[string]string{"categoryId": f.category.ID, "filename": "../x"})
	rec = httptest.NewRecorder()
	f.h.ServeTranscoded(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("traversal filename: status = %d, want 400", rec.Code)
	}
}

func TestProbeTranscoded(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/transcoded/"+f.category.ID+"/old.avi", nil)
	req = mux.SetURLVars(req, map[string]string{"categoryId": f.category.ID, "filename": "old.avi"})
	rec := httptest.NewRecorder()
	f.h.ProbeTranscoded(rec, req)

	var resp struct {
		Exists bool   `json:"exists"`
		URL    string `json:"url"`
	}
	decodeBody(t, rec, &resp)
	if resp.Exists {
		t.Error("expected no materialized output yet")
	}

	outDir := filepath.Join(f.config.DownloadDir, f.category.ID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "old.mp4"), []byte("done"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	f.h.ProbeTranscoded(rec, req)
	decodeBody(t, rec, &resp)
	if !resp.Exists {
		t.Fatal("expected materialized output to be reported")
	}
	if !strings.Contains(resp.URL, "/api/batch/transcoded/"+f.category.ID+"/old.mp4") {
		t.Errorf("URL = %q", resp.URL)
	}
}

func TestVersionInfo(t *testing.T) {
	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.h.VersionInfo(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	var info startup.BuildInfo
	decodeBody(t, rec, &info)
	if info.Version == "" || info.GoVersion == "" {
		t.Errorf("incomplete build info: %+v", info)
	}
}
