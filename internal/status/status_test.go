package status

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestMeterIncrementsNamedCounter(t *testing.T) {
	s := New(zap.NewNop())
	s.Meter("extract.refocus", Success)
	s.Meter("extract.refocus", Success)
	s.Meter("extract.refocus", Failure)

	got := testutil.ToFloat64(s.counters.WithLabelValues("extract.refocus", string(Success)))
	if got != 2 {
		t.Fatalf("expected 2 success events, got %v", got)
	}
}

func TestTimerRecordsElapsedDuration(t *testing.T) {
	s := New(zap.NewNop())
	stop := s.Timer("extract.refocus", "remote_call")
	time.Sleep(time.Millisecond)
	stop()

	count := testutil.CollectAndCount(s.timers)
	if count == 0 {
		t.Fatalf("expected the timer histogram to have recorded a sample")
	}
}

func TestLogErrorDoesNotPanicOnNilLogger(t *testing.T) {
	s := New(nil)
	s.LogError("something failed", errors.New("boom"))
	s.LogCritical("invariant violated", errors.New("boom"))
	s.LogInfo("informational")
}
