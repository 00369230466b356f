// Package metrics exposes Prometheus collectors for service requests and refresh cycles.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moodwatch"

var (
	// requestsTotal counts calls to the emotion service by endpoint and outcome.
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests sent to the emotion service",
		},
		[]string{"endpoint", "status"}, // status: success, error
	)

	// requestDuration is a histogram of emotion service round trips.
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of emotion service requests in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// cyclesTotal counts refresh cycles by acquisition mode and outcome.
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Total number of refresh cycles",
		},
		[]string{"mode", "status"}, // status: rendered, failed, discarded
	)

	// sessionsActive is 1 while a session is active.
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active sessions",
		},
	)

	// facesDetected tracks total_faces from the most recent rendered summary.
	facesDetected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "faces_detected",
			Help:      "Faces in the most recent emotion summary",
		},
	)
)

// Registry holds every moodwatch collector. It is separate from the default
// registry so tests and embedders get a clean set.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(requestsTotal, requestDuration, cyclesTotal, sessionsActive, facesDetected)
}

// ObserveRequest records one service request.
func ObserveRequest(endpoint string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	requestsTotal.WithLabelValues(endpoint, status).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveCycle records the outcome of one refresh cycle.
func ObserveCycle(mode, status string) {
	cyclesTotal.WithLabelValues(mode, status).Inc()
}

// SetActive flips the active session gauge.
func SetActive(active bool) {
	if active {
		sessionsActive.Set(1)
		return
	}
	sessionsActive.Set(0)
}

// SetFaces records the face count of the latest summary.
func SetFaces(n int) {
	facesDetected.Set(float64(n))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
