package memory

import (
	"errors"
	"os"
	"testing"
)

func TestConfigureFromEnv_NoEnvironmentVariables(t *testing.T) {
	oldGoMemLimit := os.Getenv("GOMEMLIMIT")
	oldMemLimit := os.Getenv("MEMORY_LIMIT")
	oldMemRatio := os.Getenv("MEMORY_RATIO")
	defer func() {
		os.Setenv("GOMEMLIMIT", oldGoMemLimit)
		os.Setenv("MEMORY_LIMIT", oldMemLimit)
		os.Setenv("MEMORY_RATIO", oldMemRatio)
	}()

	os.Unsetenv("GOMEMLIMIT")
	os.Unsetenv("MEMORY_LIMIT")
	os.Unsetenv("MEMORY_RATIO")

	result := ConfigureFromEnv()

	if result.Configured {
		t.Error("Expected Configured to be false when no env vars set")
	}
	if result.Source != sourceNone {
		t.Errorf("Expected Source to be %q, got %q", sourceNone, result.Source)
	}
}

func TestConfigureFromEnv_InvalidMemoryLimit(t *testing.T) {
	oldGoMemLimit := os.Getenv("GOMEMLIMIT")
	oldMemLimit := os.Getenv("MEMORY_LIMIT")
	defer func() {
		os.Setenv("GOMEMLIMIT", oldGoMemLimit)
		os.Setenv("MEMORY_LIMIT", oldMemLimit)
	}()

	os.Unsetenv("GOMEMLIMIT")
	os.Setenv("MEMORY_LIMIT", "not-a-number")

	result := ConfigureFromEnv()

	if result.Configured {
		t.Error("Expected Configured to be false for invalid MEMORY_LIMIT")
	}
	if result.Source != sourceNone {
		t.Errorf("Expected Source to be %q, got %q", sourceNone, result.Source)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1073741824, "1.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestMonitor_ThresholdDefaulting(t *testing.T) {
	tests := []struct {
		threshold float64
		want      float64
	}{
		{90, 90},
		{50.5, 50.5},
		{0, DefaultPressureThreshold},
		{-1, DefaultPressureThreshold},
		{150, DefaultPressureThreshold},
	}

	for _, tt := range tests {
		m := NewMonitor(tt.threshold)
		if m.Threshold() != tt.want {
			t.Errorf("NewMonitor(%f).Threshold() = %f, want %f", tt.threshold, m.Threshold(), tt.want)
		}
	}
}

func TestMonitor_UnderPressure(t *testing.T) {
	tests := []struct {
		name string
		used float64
		err  error
		want bool
	}{
		{"below threshold", 50, nil, false},
		{"at threshold", 90, nil, true},
		{"above threshold", 95, nil, true},
		{"probe error", 99, errors.New("no /proc"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(90)
			m.usedPercent = func() (float64, error) { return tt.used, tt.err }

			if got := m.UnderPressure(); got != tt.want {
				t.Errorf("UnderPressure() = %v, want %v", got, tt.want)
			}
		})
	}
}
