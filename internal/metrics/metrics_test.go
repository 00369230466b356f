package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequestCountsByStatus(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("predict_emotion", "error"))

	ObserveRequest("predict_emotion", 20*time.Millisecond, errors.New("boom"))
	ObserveRequest("predict_emotion", 20*time.Millisecond, nil)

	after := testutil.ToFloat64(requestsTotal.WithLabelValues("predict_emotion", "error"))
	if after-before != 1 {
		t.Errorf("error counter moved by %v, want 1", after-before)
	}
}

func TestSetActive(t *testing.T) {
	SetActive(true)
	if got := testutil.ToFloat64(sessionsActive); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}
	SetActive(false)
	if got := testutil.ToFloat64(sessionsActive); got != 0 {
		t.Errorf("sessions_active = %v, want 0", got)
	}
}

func TestObserveCycle(t *testing.T) {
	before := testutil.ToFloat64(cyclesTotal.WithLabelValues("server", "discarded"))
	ObserveCycle("server", "discarded")
	if got := testutil.ToFloat64(cyclesTotal.WithLabelValues("server", "discarded")); got-before != 1 {
		t.Errorf("discarded counter moved by %v, want 1", got-before)
	}
}
