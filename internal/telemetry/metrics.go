/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grimnir_tv_api_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_api_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grimnir_tv_api_active_connections",
		Help: "In-flight HTTP requests.",
	})

	// Schedule compiler
	CompileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grimnir_tv_schedule_compile_duration_seconds",
			Help:    "Time spent compiling a slot schedule.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"variant"},
	)

	CompilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_schedule_compiles_total",
			Help: "Schedule compiles by variant and result.",
		},
		[]string{"variant", "result"},
	)

	CompiledPrograms = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grimnir_tv_schedule_compiled_programs",
		Help:    "Number of programs produced per compile.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	// Lineup resolver
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grimnir_tv_lineup_resolve_duration_seconds",
		Help:    "Time spent resolving the current lineup item.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	ResolvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_lineup_resolves_total",
			Help: "Resolved lineup items by item type.",
		},
		[]string{"type"},
	)

	ResolveErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_lineup_resolve_errors_total",
			Help: "Resolve failures and error placeholders by reason.",
		},
		[]string{"reason"},
	)

	// Filler picker
	FillerPicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_filler_picks_total",
			Help: "Filler pick attempts by result.",
		},
		[]string{"result"},
	)

	// Resume cache
	ResumeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_resume_cache_lookups_total",
			Help: "Resume cache lookups by result.",
		},
		[]string{"result"},
	)

	// Channel config cache
	ChannelCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_channel_cache_lookups_total",
			Help: "Channel config lookups by cache layer and result.",
		},
		[]string{"layer", "result"},
	)

	// Database
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grimnir_tv_database_query_duration_seconds",
			Help:    "Database query latency by operation and table.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)

	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimnir_tv_database_errors_total",
			Help: "Database errors by operation.",
		},
		[]string{"operation", "error_type"},
	)

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grimnir_tv_database_connections_active",
		Help: "Open database connections.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
