package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc1234", "go1.25")

	got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc1234", "go1.25"))
	if got != 1 {
		t.Errorf("AppInfo = %f, want 1", got)
	}
}

func TestFallbackCounterLabels(t *testing.T) {
	// Each documented reason must be usable without panicking and
	// increment independently.
	reasons := []string{"unavailable", "disabled", "start_failed", "wait_failed"}

	for _, reason := range reasons {
		before := testutil.ToFloat64(PlaybackFallbacksTotal.WithLabelValues(reason))
		PlaybackFallbacksTotal.WithLabelValues(reason).Inc()
		after := testutil.ToFloat64(PlaybackFallbacksTotal.WithLabelValues(reason))

		if after != before+1 {
			t.Errorf("fallback counter for %q = %f, want %f", reason, after, before+1)
		}
	}
}
