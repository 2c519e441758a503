// Package metrics exposes Prometheus instrumentation for the browse engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecomputeTotal counts frame recomputations, labelled by output format.
	RecomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "figmap_recompute_total",
		Help: "Number of frame recomputations",
	}, []string{"format"})

	// RecomputeDuration measures how long a frame recomputation takes.
	RecomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "figmap_recompute_duration_seconds",
		Help:    "Duration of frame recomputations",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	// QueryErrorsTotal counts rejected query submissions.
	QueryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "figmap_query_errors_total",
		Help: "Number of query submissions that failed to compile",
	})

	// SessionsActive tracks open browsing sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "figmap_sessions_active",
		Help: "Number of open browsing sessions",
	})

	// FrameCacheTotal counts PNG frame cache lookups by result.
	FrameCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "figmap_frame_cache_total",
		Help: "PNG frame cache lookups",
	}, []string{"result"})
)
