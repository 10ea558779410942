package startup

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_SET_VAR", "custom")

	if got := getEnv("TEST_SET_VAR", "default"); got != "custom" {
		t.Errorf("getEnv = %q, want custom", got)
	}
	if got := getEnv("TEST_UNSET_VAR_XYZ", "default"); got != "default" {
		t.Errorf("getEnv = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"banana", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL_VAR", tt.value)
		if got := getEnvBool("TEST_BOOL_VAR", tt.defaultValue); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "25")
	if got := getEnvInt("TEST_INT_VAR", 50); got != 25 {
		t.Errorf("getEnvInt = %d, want 25", got)
	}

	t.Setenv("TEST_INT_VAR", "-3")
	if got := getEnvInt("TEST_INT_VAR", 50); got != 50 {
		t.Errorf("getEnvInt with negative = %d, want default 50", got)
	}

	t.Setenv("TEST_INT_VAR", "nope")
	if got := getEnvInt("TEST_INT_VAR", 50); got != 50 {
		t.Errorf("getEnvInt with junk = %d, want default 50", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR_VAR", "90s")
	if got := getEnvDuration("TEST_DUR_VAR", time.Minute); got != 90*time.Second {
		t.Errorf("getEnvDuration = %s, want 90s", got)
	}

	t.Setenv("TEST_DUR_VAR", "soon")
	if got := getEnvDuration("TEST_DUR_VAR", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration with junk = %s, want default 1m", got)
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"*", []string{"*"}},
		{"http://a.com, http://b.com", []string{"http://a.com", "http://b.com"}},
		{" , ,", []string{}},
	}

	for _, tt := range tests {
		got := splitCSV(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitCSV(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("splitCSV(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("PORT", "5050")
	t.Setenv("GHOSTSTREAM_URL", "http://ghoststream:8765")
	t.Setenv("CACHE_CAPACITY", "10")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != "5050" {
		t.Errorf("Port = %q, want 5050", config.Port)
	}
	if !config.GhostStreamEnabled {
		t.Error("GhostStreamEnabled should default to true when a URL is set")
	}
	if config.CacheCapacity != 10 {
		t.Errorf("CacheCapacity = %d, want 10", config.CacheCapacity)
	}
	if config.HistoryPath == "" || config.CategoriesFile == "" {
		t.Error("derived paths should be set")
	}
}

func TestLoadConfigDisabledWithoutURL(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("GHOSTSTREAM_URL", "")
	t.Setenv("GHOSTSTREAM_ENABLED", "")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.GhostStreamEnabled {
		t.Error("GhostStreamEnabled should default to false without a URL")
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/transcode/start", "api/transcode"},
		{"/api/health", "api/health"},
		{"/ws/events", "ws"},
		{"/metrics", "metrics"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {}).Methods("GET")
	router.HandleFunc("/api/transcode/start", func(w http.ResponseWriter, r *http.Request) {}).Methods("POST")

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2", len(routes))
	}

	found := false
	for _, r := range routes {
		if r.Path == "/api/transcode/start" && r.Method == "POST" {
			found = true
		}
	}
	if !found {
		t.Error("POST /api/transcode/start not found in routes")
	}
}
