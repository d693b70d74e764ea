/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry holds Prometheus metrics and OpenTelemetry tracing
// for the schedule service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, endpoint and status code.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eir",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, endpoint and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eir",
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "HTTP requests currently in flight.",
	})

	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eir",
		Subsystem: "api",
		Name:      "websocket_connections",
		Help:      "Open websocket connections.",
	})
)

// Schedule engine metrics
var (
	PropagationRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "schedule",
		Name:      "propagation_runs_total",
		Help:      "Propagation passes executed.",
	})

	ConflictShiftsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "schedule",
		Name:      "conflict_shifts_total",
		Help:      "Blocks shifted by the conflict resolver.",
	})

	ScheduleBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eir",
		Subsystem: "schedule",
		Name:      "blocks",
		Help:      "Blocks in the current day schedule.",
	})

	ScheduleWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "schedule",
		Name:      "warnings_total",
		Help:      "End-of-day validation warnings raised.",
	})
)

// Broadcast hub metrics
var (
	HubSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eir",
		Subsystem: "hub",
		Name:      "subscribers",
		Help:      "Connected websocket subscribers.",
	})

	HubMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "hub",
		Name:      "messages_total",
		Help:      "Messages broadcast to subscribers.",
	})

	HubDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "hub",
		Name:      "dropped_total",
		Help:      "Subscribers dropped for slow or failed delivery.",
	})
)

// Predictor gateway metrics
var (
	PredictorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "predictor",
		Name:      "requests_total",
		Help:      "Predictor gateway calls by outcome.",
	}, []string{"kind", "outcome"})
)

// Database metrics
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eir",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database operation latency by operation and table.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eir",
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Database errors by operation and kind.",
	}, []string{"operation", "kind"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eir",
		Subsystem: "db",
		Name:      "connections_active",
		Help:      "Open database connections.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
