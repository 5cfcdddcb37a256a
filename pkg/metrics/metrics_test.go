package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("/api", 200, 120*time.Millisecond)
	m.RecordRequest("/api", 200, 80*time.Millisecond)
	m.RecordRequest("/api", 400, time.Millisecond)

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api", "400")); got != 1 {
		t.Errorf("400 count = %v, want 1", got)
	}
}

func TestRecordStage(t *testing.T) {
	m := New()
	m.RecordStage("transcription", 10*time.Millisecond, nil)
	m.RecordStage("speechSynthesis", 10*time.Millisecond, errors.New("down"))

	if got := testutil.ToFloat64(m.StageFailures.WithLabelValues("speechSynthesis")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StageFailures.WithLabelValues("transcription")); got != 0 {
		t.Errorf("transcription failures = %v, want 0", got)
	}
	if n := testutil.CollectAndCount(m.StageDuration); n != 2 {
		t.Errorf("stage series = %d, want 2", n)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ExchangesTotal.Inc()
	if testutil.ToFloat64(b.ExchangesTotal) != 0 {
		t.Error("registries should not share state")
	}
}
