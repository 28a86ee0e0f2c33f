package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "sdqprobe"

// Metrics holds the session's collectors on a private registry, so several
// sessions (or tests) never collide on global registration.
//
// Metrics:
//   - sdqprobe_touches_total - touch lines seen
//   - sdqprobe_failures_total{keyword} - failure lines written to the report
//   - sdqprobe_rotations_total - report files archived
//   - sdqprobe_snapshots_total - periodic count lines written
//   - sdqprobe_window_touches - windowed touch count at the latest snapshot
//   - sdqprobe_last_touch_timestamp_seconds - Unix time of the latest touch
type Metrics struct {
	Registry *prometheus.Registry

	Touches        prometheus.Counter
	Failures       *prometheus.CounterVec
	Rotations      prometheus.Counter
	Snapshots      prometheus.Counter
	WindowTouches  prometheus.Gauge
	LastTouchEpoch prometheus.Gauge
}

// New creates and registers the collectors, plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Touches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "touches_total",
			Help:      "Touch marker lines seen in the tailed log.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failure lines copied into the report file.",
		}, []string{"keyword"}),
		Rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Report files moved to the archive.",
		}),
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Periodic count lines written to the report file.",
		}),
		WindowTouches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_touches",
			Help:      "Touches inside the cache window at the latest snapshot.",
		}),
		LastTouchEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_touch_timestamp_seconds",
			Help:      "Unix time of the most recent touch.",
		}),
	}
	reg.MustRegister(
		m.Touches,
		m.Failures,
		m.Rotations,
		m.Snapshots,
		m.WindowTouches,
		m.LastTouchEpoch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTouch counts a touch seen at t.
func (m *Metrics) ObserveTouch(t time.Time) {
	if m == nil {
		return
	}
	m.Touches.Inc()
	m.LastTouchEpoch.Set(float64(t.Unix()) + float64(t.Nanosecond())/1e9)
}

// ObserveFailure counts a failure line matched by keyword.
func (m *Metrics) ObserveFailure(keyword string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(keyword).Inc()
}

// ObserveRotation counts an archived report file.
func (m *Metrics) ObserveRotation() {
	if m == nil {
		return
	}
	m.Rotations.Inc()
}

// ObserveSnapshot records a periodic count line.
func (m *Metrics) ObserveSnapshot(count int) {
	if m == nil {
		return
	}
	m.Snapshots.Inc()
	m.WindowTouches.Set(float64(count))
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. It returns nil on a
// clean shutdown.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics: %w", err)
		}
		return nil
	}
}
