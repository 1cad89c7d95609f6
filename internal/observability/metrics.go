package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/gradecraft/internal/platform/logger"
)

// Metrics is safe to use as a nil pointer; every method is a no-op then.
type Metrics struct {
	registry *prometheus.Registry

	dispatches       *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec
	upstream         *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	attempts         *prometheus.HistogramVec
	validations      *prometheus.CounterVec
	qualityIssues    *prometheus.CounterVec
	illustrateStages *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process metrics, or nil when Init has not run.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Debug("prometheus metrics initialized")
		}
	})
	return instance
}

// NewMetrics builds a Metrics on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_backend_dispatch_total",
			Help: "Backend dispatches by backend/operation/status.",
		}, []string{"backend", "operation", "status"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gc_backend_dispatch_duration_seconds",
			Help:    "Backend dispatch latency in seconds by backend/operation.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"backend", "operation"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_upstream_request_total",
			Help: "Transport-level provider requests (retries included) by backend/call/status.",
		}, []string{"backend", "call", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gc_upstream_request_duration_seconds",
			Help:    "Transport-level provider request latency in seconds by backend/call.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"backend", "call"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_backend_fallback_total",
			Help: "Fallback dispatches by primary/fallback/operation.",
		}, []string{"primary", "fallback", "operation"}),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gc_generation_attempts",
			Help:    "Attempts spent per validated generation by kind/outcome.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}, []string{"kind", "outcome"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_validation_total",
			Help: "Validation outcomes by kind/band/valid.",
		}, []string{"kind", "band", "valid"}),
		qualityIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_quality_issues_total",
			Help: "Unresolved content issues by kind/category.",
		}, []string{"kind", "category"}),
		illustrateStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_illustration_stage_total",
			Help: "Illustration stage outcomes by kind/stage/status.",
		}, []string{"kind", "stage", "status"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_llm_tokens_total",
			Help: "LLM tokens by backend/direction.",
		}, []string{"backend", "direction"}),
	}
	m.registry.MustRegister(
		m.dispatches,
		m.dispatchLatency,
		m.upstream,
		m.upstreamLatency,
		m.fallbacks,
		m.attempts,
		m.validations,
		m.qualityIssues,
		m.illustrateStages,
		m.llmTokens,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveDispatch(backend, operation string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.dispatches.WithLabelValues(orUnknown(backend), orUnknown(operation), status).Inc()
	if dur > 0 {
		m.dispatchLatency.WithLabelValues(orUnknown(backend), orUnknown(operation)).Observe(dur.Seconds())
	}
}

// ObserveUpstream records one provider call made by a transport. Router-level dispatches go
// through ObserveDispatch, so a chat request is counted once per family.
func (m *Metrics) ObserveUpstream(backend, call string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.upstream.WithLabelValues(orUnknown(backend), orUnknown(call), status).Inc()
	if dur > 0 {
		m.upstreamLatency.WithLabelValues(orUnknown(backend), orUnknown(call)).Observe(dur.Seconds())
	}
}

func (m *Metrics) IncFallback(primary, fallback, operation string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(orUnknown(primary), orUnknown(fallback), orUnknown(operation)).Inc()
}

func (m *Metrics) ObserveAttempts(kind string, attempts int, valid bool) {
	if m == nil || attempts <= 0 {
		return
	}
	outcome := "valid"
	if !valid {
		outcome = "exhausted"
	}
	m.attempts.WithLabelValues(orUnknown(kind), outcome).Observe(float64(attempts))
}

func (m *Metrics) IncValidation(kind, band string, valid bool) {
	if m == nil {
		return
	}
	v := "false"
	if valid {
		v = "true"
	}
	m.validations.WithLabelValues(orUnknown(kind), orUnknown(band), v).Inc()
}

func (m *Metrics) IncIllustrationStage(kind, stage, status string) {
	if m == nil {
		return
	}
	m.illustrateStages.WithLabelValues(orUnknown(kind), orUnknown(stage), orUnknown(status)).Inc()
}

func (m *Metrics) AddTokens(backend string, prompt, completion int) {
	if m == nil {
		return
	}
	if prompt > 0 {
		m.llmTokens.WithLabelValues(orUnknown(backend), "input").Add(float64(prompt))
	}
	if completion > 0 {
		m.llmTokens.WithLabelValues(orUnknown(backend), "output").Add(float64(completion))
	}
}

func (m *Metrics) incQualityIssue(kind, category string) {
	if m == nil {
		return
	}
	m.qualityIssues.WithLabelValues(orUnknown(kind), orUnknown(category)).Inc()
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
