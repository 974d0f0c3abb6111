package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentcore/agentcore/internal/events"
	agentmetrics "github.com/agentcore/agentcore/internal/metrics"
)

// Exporter serves a Prometheus /metrics endpoint reflecting a session's
// accumulated cost, token usage, and event counts. Grounded on the
// teacher pack's prometheus/client_golang usage in
// fyrsmithlabs-contextd/pkg/prefetch/metrics.go (sync.Once-guarded
// promauto registration, a struct of Counter/Gauge/CounterVec fields),
// adapted from pre-fetch rule counters to session cost/event counters.
type Exporter struct {
	sessionID string

	eventsTotal  *prometheus.CounterVec
	accumCost    prometheus.Gauge
	iterationCur prometheus.Gauge
	budgetCur    prometheus.Gauge

	server *http.Server
}

var (
	registerOnce sync.Once
	registry     *prometheus.Registry
)

// sessionRegistry returns a process-wide registry, created once, so
// multiple Exporter instances in the same process (rare, but possible
// for a supervisor running several sessions) don't panic on duplicate
// collector registration.
func sessionRegistry() *prometheus.Registry {
	registerOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
	return registry
}

// NewExporter creates an Exporter for sessionID. It does not start
// serving until Serve is called.
func NewExporter(sessionID string) *Exporter {
	reg := sessionRegistry()
	labels := prometheus.Labels{"session_id": sessionID}

	return &Exporter{
		sessionID: sessionID,
		eventsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "agentcore_session_events_total",
				Help:        "Total number of events appended to a session's stream.",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		accumCost: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "agentcore_session_accumulated_cost_usd",
			Help:        "Accumulated USD cost for a session.",
			ConstLabels: labels,
		}),
		iterationCur: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "agentcore_session_iteration_current",
			Help:        "Current iteration count for a session's IterationFlag.",
			ConstLabels: labels,
		}),
		budgetCur: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "agentcore_session_budget_spent_usd",
			Help:        "Current spend against a session's BudgetFlag ceiling.",
			ConstLabels: labels,
		}),
	}
}

// Attach subscribes the exporter to stream, incrementing the per-kind
// event counter on every append.
func (ex *Exporter) Attach(stream *events.Stream) {
	stream.Subscribe(events.SubscriberExporter, ex.sessionID, func(e *events.Event) {
		ex.eventsTotal.WithLabelValues(string(e.Kind)).Inc()
	})
}

// Detach unsubscribes from stream.
func (ex *Exporter) Detach(stream *events.Stream) {
	stream.Unsubscribe(events.SubscriberExporter, ex.sessionID)
}

// RecordMetricsSnapshot updates the cost/iteration gauges from a Metrics
// snapshot; callers typically call this once per controller step.
func (ex *Exporter) RecordMetricsSnapshot(snap agentmetrics.Snapshot, iterationCurrent, budgetSpent float64) {
	ex.accumCost.Set(snap.AccumulatedCost)
	ex.iterationCur.Set(iterationCurrent)
	ex.budgetCur.Set(budgetSpent)
}

// Serve starts an HTTP server on addr exposing /metrics. It runs until
// ctx is canceled or Shutdown is called.
func (ex *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(sessionRegistry(), promhttp.HandlerOpts{}))

	ex.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := ex.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("telemetry: metrics server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		_ = ex.server.Shutdown(context.Background())
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the metrics server, if running.
func (ex *Exporter) Shutdown(ctx context.Context) error {
	if ex.server == nil {
		return nil
	}
	return ex.server.Shutdown(ctx)
}
