// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the Prometheus collectors for the analysis
// pipeline and the version store.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lexscan_analyses_total",
	Help: "Document analyses by final status",
}, []string{"status"})

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "lexscan_stage_duration_seconds",
	Help:    "Time spent in each analysis stage",
	Buckets: prometheus.DefBuckets,
}, []string{"stage"})

var activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "lexscan_active_jobs",
	Help: "Analysis jobs currently registered",
})

var versionsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lexscan_versions_created_total",
	Help: "Document versions created",
})

var versionsPruned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lexscan_versions_pruned_total",
	Help: "Versions dropped by the retention cap",
})

var rollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lexscan_rollbacks_total",
	Help: "Rollbacks performed",
})

var entityServiceErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lexscan_entity_service_errors_total",
	Help: "Failed calls to the external entity extraction service",
})

var ocrFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lexscan_ocr_fallbacks_total",
	Help: "OCR failures that fell back to plain extraction",
})

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lexscan_http_requests_total",
	Help: "HTTP API requests by route and status",
}, []string{"route", "status"})

// RecordAnalysis counts a finished analysis
func RecordAnalysis(status string) {
	analysesTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a stage took
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetActiveJobs publishes the registry size
func SetActiveJobs(n int) {
	activeJobs.Set(float64(n))
}

func IncVersionsCreated() {
	versionsCreated.Inc()
}

func AddVersionsPruned(n int) {
	versionsPruned.Add(float64(n))
}

func IncRollbacks() {
	rollbacksTotal.Inc()
}

func IncEntityServiceErrors() {
	entityServiceErrors.Inc()
}

func IncOCRFallbacks() {
	ocrFallbacks.Inc()
}

// RecordHTTPRequest counts one API request
func RecordHTTPRequest(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
