package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"ghosthub/internal/categories"
	"ghosthub/internal/events"
	"ghosthub/internal/ghoststream"
	"ghosthub/internal/handlers"
	"ghosthub/internal/history"
	"ghosthub/internal/logging"
	"ghosthub/internal/memory"
	"ghosthub/internal/metrics"
	"ghosthub/internal/middleware"
	"ghosthub/internal/playbackcache"
	"ghosthub/internal/startup"
	"ghosthub/internal/transcode"
)

func main() {
	startTime := time.Now()

	// Tune GOMEMLIMIT before anything allocates seriously
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())

	// Initialize job history store
	histStart := time.Now()
	hist, err := history.New(context.Background(), config.HistoryPath)
	if err != nil {
		startup.LogFatal("Failed to initialize job history: %v", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logging.Error("Failed to close history store: %v", err)
		}
	}()
	startup.LogHistoryInit(time.Since(histStart))

	// Load category registry
	cats, err := categories.Load(config.CategoriesFile)
	if err != nil {
		startup.LogFatal("Failed to load categories: %v", err)
	}

	// Probe the remote transcoding service
	client := ghoststream.NewClient(config.GhostStreamURL, config.GhostStreamEnabled)
	healthy := client.RefreshHealth(context.Background())
	startup.LogGhostStreamInit(client.Enabled(), healthy, client.BaseURL())

	// Event hub for browser-facing progress pushes
	hub := events.NewHub()

	// Transcode orchestration
	orch := transcode.NewOrchestrator(transcode.OrchestratorConfig{
		Client:   client,
		Registry: transcode.NewRegistry(),
		Poller:   transcode.NewPoller(client, transcode.DefaultPollInterval),
		SourceURL: func(identity transcode.MediaIdentity) string {
			return config.PublicBaseURL + "/media/" + identity.CategoryID + "/" + identity.Filename
		},
		History: hist,
		Progress: func(job *ghoststream.Job, status string) {
			if job == nil {
				return
			}
			hub.Broadcast("job_progress", map[string]interface{}{
				"job":    job,
				"status": status,
			})
		},
		Materialize: func(ctx context.Context, job *ghoststream.Job, identity transcode.MediaIdentity, filename string) error {
			dest := filepath.Join(config.DownloadDir, identity.CategoryID, transcode.MaterializedName(filename))
			size, err := client.Download(ctx, client.BaseURL()+job.DownloadURL, dest)
			if err != nil {
				return err
			}
			logging.Info("Materialized %s (%d bytes) from job %s", filename, size, job.JobID)
			return nil
		},
	})

	resolver := transcode.NewResolver(orch, config.AutoTranscode)
	cache := playbackcache.New(config.CacheCapacity)
	memMon := memory.NewMonitor(config.PressureThreshold)

	// Initialize handlers
	h := handlers.New(client, orch, resolver, cache, hist, cats, hub, memMon, config)

	// Setup router
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Periodic maintenance
	scheduler := startScheduler(config, client, cache, memMon, hist)

	// Apply middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	})

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = router
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = corsHandler.Handler(handler)

	// Create server. WriteTimeout stays 0 so long media responses and
	// the websocket are not cut off.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, scheduler, orch, hub)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health and version
	r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/api/version", h.VersionInfo).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Playback and transcode jobs
	api.HandleFunc("/playback", h.PlaybackURL).Methods("POST")
	api.HandleFunc("/transcode/start", h.StartTranscode).Methods("POST")
	api.HandleFunc("/transcode/active", h.ActiveJobs).Methods("GET")
	api.HandleFunc("/transcode/{jobId}/status", h.JobStatus).Methods("GET")
	api.HandleFunc("/transcode/{jobId}/cancel", h.CancelJob).Methods("POST")
	api.HandleFunc("/transcode/{jobId}", h.DeleteJob).Methods("DELETE")

	// Batch operations
	api.HandleFunc("/batch/start", h.StartBatch).Methods("POST")
	api.HandleFunc("/batch/transcoded/{categoryId}", h.ListTranscoded).Methods("GET")
	api.HandleFunc("/batch/transcoded/{categoryId}/{filename}", h.ServeTranscoded).Methods("GET")
	api.HandleFunc("/transcoded/{categoryId}/{filename}", h.ProbeTranscoded).Methods("GET")

	// Playback cache
	api.HandleFunc("/cache", h.CachePut).Methods("POST")
	api.HandleFunc("/cache/stats", h.CacheStats).Methods("GET")
	api.HandleFunc("/cache/clear", h.CacheClear).Methods("POST")
	api.HandleFunc("/cache/prune", h.CachePrune).Methods("POST")
	api.HandleFunc("/cache/{key:.*}", h.CacheGet).Methods("GET")

	// Categories and media
	api.HandleFunc("/categories", h.ListCategories).Methods("GET")
	api.HandleFunc("/categories", h.AddCategory).Methods("POST")
	api.HandleFunc("/categories/{categoryId}", h.GetCategory).Methods("GET")
	api.HandleFunc("/categories/{categoryId}", h.RemoveCategory).Methods("DELETE")
	api.HandleFunc("/media/{categoryId}", h.ListMedia).Methods("GET")

	// Job history
	api.HandleFunc("/history", h.RecentHistory).Methods("GET")
	api.HandleFunc("/history/stats", h.HistoryStats).Methods("GET")
	api.HandleFunc("/history/{jobId}", h.JobHistory).Methods("GET")

	// Remote service status
	api.HandleFunc("/ghoststream/status", h.GhostStreamStatus).Methods("GET")
	api.HandleFunc("/ghoststream/test", h.GhostStreamTest).Methods("POST")

	// System stats
	api.HandleFunc("/stats", h.SystemStats).Methods("GET")

	// Original files, also fetched by the remote transcoding service
	r.HandleFunc("/media/{categoryId}/{filename}", h.ServeMedia).Methods("GET", "HEAD")

	// WebSocket event stream
	r.HandleFunc("/ws/events", h.Events)

	if config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	return r
}

// startScheduler wires the periodic jobs: the low-memory sweep, the
// history prune, and the remote health refresh.
func startScheduler(config *startup.Config, client *ghoststream.Client,
	cache *playbackcache.Cache, memMon *memory.Monitor, hist *history.Store) *cron.Cron {
	scheduler := cron.New()

	sweep := func() {
		if memMon.UnderPressure() {
			logging.Info("Low-memory sweep: clearing playback cache (%d entries)", cache.Len())
			cache.Clear()
			return
		}
		if evicted := cache.PruneToCapacity(); evicted > 0 {
			logging.Info("Cleanup sweep evicted %d cache entries", evicted)
		}
	}

	if _, err := scheduler.AddFunc("@every "+config.SweepInterval.String(), sweep); err != nil {
		logging.Error("Failed to schedule cleanup sweep: %v", err)
	}

	if _, err := scheduler.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := hist.Prune(ctx, config.HistoryMaxAge); err != nil {
			logging.Warn("History prune failed: %v", err)
		}
	}); err != nil {
		logging.Error("Failed to schedule history prune: %v", err)
	}

	if _, err := scheduler.AddFunc("@every 30s", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client.RefreshHealth(ctx)
	}); err != nil {
		logging.Error("Failed to schedule health refresh: %v", err)
	}

	scheduler.Start()
	return scheduler
}

func handleShutdown(srv *http.Server, scheduler *cron.Cron, orch *transcode.Orchestrator,
	hub *events.Hub) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping scheduler")
	scheduler.Stop()
	startup.LogShutdownStepComplete("Scheduler stopped")

	startup.LogShutdownStep("Tearing down transcode jobs")
	orch.Teardown()
	startup.LogShutdownStepComplete("Transcode jobs cleaned up")

	startup.LogShutdownStep("Closing event hub")
	hub.Close()
	startup.LogShutdownStepComplete("Event hub closed")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
