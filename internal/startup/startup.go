package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"ghosthub/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port    string
	DataDir string

	// GhostStream remote transcoding service
	GhostStreamURL     string
	GhostStreamEnabled bool
	AutoTranscode      bool
	WaitTimeout        time.Duration
	DefaultResolution  string
	DefaultVideoCodec  string

	// Where the remote service fetches originals from
	PublicBaseURL string

	CacheCapacity     int
	SweepInterval     time.Duration
	HistoryMaxAge     time.Duration
	PressureThreshold float64

	LogHealthChecks bool
	MetricsEnabled  bool
	CORSOrigins     []string

	// Derived paths
	HistoryPath    string
	CategoriesFile string
	DownloadDir    string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	port := getEnv("PORT", "5000")
	dataDir := getEnv("DATA_DIR", "/data")
	ghostStreamURL := getEnv("GHOSTSTREAM_URL", "")
	ghostStreamEnabled := getEnvBool("GHOSTSTREAM_ENABLED", ghostStreamURL != "")
	autoTranscode := getEnvBool("AUTO_TRANSCODE", true)
	waitTimeout := getEnvDuration("TRANSCODE_WAIT_TIMEOUT", 60*time.Second)
	defaultResolution := getEnv("DEFAULT_RESOLUTION", "1080p")
	defaultVideoCodec := getEnv("DEFAULT_VIDEO_CODEC", "h264")
	publicBaseURL := strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/")
	cacheCapacity := getEnvInt("CACHE_CAPACITY", 50)
	sweepInterval := getEnvDuration("SWEEP_INTERVAL", 5*time.Minute)
	historyMaxAge := getEnvDuration("HISTORY_MAX_AGE", 30*24*time.Hour)
	pressureThreshold := getEnvFloat("MEMORY_PRESSURE_PCT", 90.0)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))

	logging.Info("  PORT:                   %s", port)
	logging.Info("  DATA_DIR:               %s", dataDir)
	logging.Info("  GHOSTSTREAM_URL:        %s", orUnset(ghostStreamURL))
	logging.Info("  GHOSTSTREAM_ENABLED:    %v", ghostStreamEnabled)
	logging.Info("  AUTO_TRANSCODE:         %v", autoTranscode)
	logging.Info("  TRANSCODE_WAIT_TIMEOUT: %s", waitTimeout)
	logging.Info("  DEFAULT_RESOLUTION:     %s", defaultResolution)
	logging.Info("  DEFAULT_VIDEO_CODEC:    %s", defaultVideoCodec)
	logging.Info("  PUBLIC_BASE_URL:        %s", publicBaseURL)
	logging.Info("  CACHE_CAPACITY:         %d", cacheCapacity)
	logging.Info("  SWEEP_INTERVAL:         %s", sweepInterval)
	logging.Info("  HISTORY_MAX_AGE:        %s", historyMaxAge)
	logging.Info("  MEMORY_PRESSURE_PCT:    %.0f", pressureThreshold)
	logging.Info("  METRICS_ENABLED:        %v", metricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:      %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", dataDir)

	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}

	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for job history): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	config := &Config{
		Port:               port,
		DataDir:            dataDir,
		GhostStreamURL:     ghostStreamURL,
		GhostStreamEnabled: ghostStreamEnabled,
		AutoTranscode:      autoTranscode,
		WaitTimeout:        waitTimeout,
		DefaultResolution:  defaultResolution,
		DefaultVideoCodec:  defaultVideoCodec,
		PublicBaseURL:      publicBaseURL,
		CacheCapacity:      cacheCapacity,
		SweepInterval:      sweepInterval,
		HistoryMaxAge:      historyMaxAge,
		PressureThreshold:  pressureThreshold,
		LogHealthChecks:    logHealthChecks,
		MetricsEnabled:     metricsEnabled,
		CORSOrigins:        corsOrigins,
		HistoryPath:        filepath.Join(dataDir, "history.db"),
		CategoriesFile:     filepath.Join(dataDir, "categories.json"),
		DownloadDir:        filepath.Join(dataDir, "transcoded"),
	}

	if err := ensureDirectory(config.DownloadDir, "download"); err != nil {
		logging.Warn("  Download directory issue: %v", err)
		logging.Warn("  Batch output materialization may fail")
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Job history:  ENABLED (required)")
	logging.Info("    Transcoding:  %s", enabledString(ghostStreamEnabled))
	logging.Info("    Metrics:      %s", enabledString(metricsEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orUnset(v string) string {
	if v == "" {
		return "(unset)"
	}
	return v
}

// LogHistoryInit logs job history store initialization
func LogHistoryInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("JOB HISTORY INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] History store initialized in %v", duration)
}

// LogGhostStreamInit logs the initial remote service probe
func LogGhostStreamInit(enabled, healthy bool, url string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("GHOSTSTREAM INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if !enabled {
		logging.Warn("  Transcoding disabled (no GHOSTSTREAM_URL configured)")
		logging.Warn("  Incompatible videos will be served as-is")
		return
	}

	if healthy {
		logging.Info("  [OK] GhostStream reachable at %s", url)
	} else {
		logging.Warn("  GhostStream at %s is not responding", url)
		logging.Warn("  Playback falls back to original files until it recovers")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., the websocket mount)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	logging.Info("    Events:        ws://0.0.0.0:%s/ws/events", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ________               __  __  __      __
  / ____/ /_  ____  _____/ /_/ / / /_  __/ /_
 / / __/ __ \/ __ \/ ___/ __/ /_/ / / / / __ \
/ /_/ / / / / /_/ (__  ) /_/ __  / /_/ / /_/ /
\____/_/ /_/\____/____/\__/_/ /_/\__,_/_.___/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access was confirmed regardless
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid value for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
