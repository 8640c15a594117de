// Package metrics records optimizer runs as prometheus metrics and exports
// them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cauldron-optimizer/internal/optimizer"
)

// Recorder owns a private registry so several recorders can coexist in
// one process (and in tests).
type Recorder struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	starts      prometheus.Counter
	iterations  prometheus.Counter
	evaluations prometheus.Counter
	cache       *prometheus.CounterVec
	bestScore   prometheus.Gauge
	duration    *prometheus.HistogramVec
}

// NewRecorder returns a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cauldron_runs_total",
			Help: "Optimizer runs by outcome",
		}, []string{"status"}),
		starts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cauldron_starts_total",
			Help: "Local searches run across all restarts",
		}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cauldron_iterations_total",
			Help: "Committed local-search moves",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cauldron_evaluations_total",
			Help: "Objective evaluations, committed or not",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cauldron_cache_lookups_total",
			Help: "Objective cache lookups by result",
		}, []string{"result"}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cauldron_best_score",
			Help: "Score of the last successful run",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cauldron_run_duration_seconds",
			Help:    "Wall time of optimizer runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}
	r.registry.MustRegister(r.runs, r.starts, r.iterations, r.evaluations,
		r.cache, r.bestScore, r.duration)
	return r
}

// Record adds one run. Search counters only move for successful runs.
func (r *Recorder) Record(stats optimizer.Stats, cache optimizer.CacheStats, score float64, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.runs.WithLabelValues(status).Inc()
	r.duration.WithLabelValues(status).Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	r.starts.Add(float64(stats.Starts))
	r.iterations.Add(float64(stats.Iterations))
	r.evaluations.Add(float64(stats.Evaluations))
	r.cache.WithLabelValues("hit").Add(float64(cache.Hits))
	r.cache.WithLabelValues("miss").Add(float64(cache.Misses))
	r.bestScore.Set(score)
}

// Gatherer exposes the registry, e.g. for promhttp.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// WriteTextfile writes the current metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
