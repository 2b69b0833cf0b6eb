// Package metrics exposes Prometheus counters for the evaluation pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Recorder is what the pipeline components report to.
type Recorder interface {
	GenerativeFailure(agent string)
	Fallback(stage string)
	ParseAmbiguity(agent string)
	RetrievalFailure(operation string)
	StudentProcessed(elapsed time.Duration, degraded bool)
	ValidationFailure()
	FilterStep(step string, dropped int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) GenerativeFailure(string)             {}
func (Nop) Fallback(string)                      {}
func (Nop) ParseAmbiguity(string)                {}
func (Nop) RetrievalFailure(string)              {}
func (Nop) StudentProcessed(time.Duration, bool) {}
func (Nop) ValidationFailure()                   {}
func (Nop) FilterStep(string, int)               {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Manager owns the Prometheus collectors.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	generativeFailures *prometheus.CounterVec
	fallbacks          *prometheus.CounterVec
	parseAmbiguities   *prometheus.CounterVec
	retrievalFailures  *prometheus.CounterVec
	studentsProcessed  *prometheus.CounterVec
	processingLatency  prometheus.Histogram
	validationFailures prometheus.Counter
	filterDropped      *prometheus.CounterVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "placement",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.generativeFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "generative_failures_total",
		Help:      "Generative backend calls that failed or returned nothing, by agent",
	}, []string{"agent"})

	m.fallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "fallbacks_total",
		Help:      "Stages that used their deterministic path, by stage",
	}, []string{"stage"})

	m.parseAmbiguities = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "parse_ambiguities_total",
		Help:      "Model answers accepted despite disagreeing with the formula, by agent",
	}, []string{"agent"})

	m.retrievalFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "retrieval_failures_total",
		Help:      "Index operations that failed and returned empty results, by operation",
	}, []string{"operation"})

	m.studentsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "students_processed_total",
		Help:      "Students evaluated, by whether any stage degraded",
	}, []string{"degraded"})

	m.processingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "student_processing_seconds",
		Help:      "Time spent evaluating one student",
		Buckets:   m.histogramBuckets,
	})

	m.validationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "validation_failures_total",
		Help:      "Records rejected before evaluation",
	})

	m.filterDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "filter_dropped_total",
		Help:      "Students dropped by query filter steps, by step",
	}, []string{"step"})
}

func (m *Manager) GenerativeFailure(agent string) {
	m.generativeFailures.WithLabelValues(agent).Inc()
}

func (m *Manager) Fallback(stage string) {
	m.fallbacks.WithLabelValues(stage).Inc()
}

func (m *Manager) ParseAmbiguity(agent string) {
	m.parseAmbiguities.WithLabelValues(agent).Inc()
}

func (m *Manager) RetrievalFailure(operation string) {
	m.retrievalFailures.WithLabelValues(operation).Inc()
}

func (m *Manager) StudentProcessed(elapsed time.Duration, degraded bool) {
	label := "false"
	if degraded {
		label = "true"
	}
	m.studentsProcessed.WithLabelValues(label).Inc()
	m.processingLatency.Observe(elapsed.Seconds())
}

func (m *Manager) ValidationFailure() {
	m.validationFailures.Inc()
}

func (m *Manager) FilterStep(step string, dropped int) {
	if dropped <= 0 {
		return
	}
	m.filterDropped.WithLabelValues(step).Add(float64(dropped))
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Manager) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
