// Copyright 2025 James Ross
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mi_jobs_enqueued_total",
		Help: "Total number of scraping jobs enqueued",
	})
	JobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mi_jobs_completed_total",
		Help: "Total number of successfully completed scraping jobs",
	})
	JobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mi_jobs_failed_total",
		Help: "Total number of failed scraping jobs",
	})
	JobsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mi_jobs_cancelled_total",
		Help: "Total number of cancelled scraping jobs",
	})
	JobProcessingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mi_job_processing_duration_seconds",
		Help:    "Histogram of scraping job durations",
		Buckets: prometheus.DefBuckets,
	})
	ProductsScraped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mi_products_scraped_total",
		Help: "Total number of normalized products persisted, by marketplace",
	}, []string{"marketplace"})
	QueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mi_queue_length",
		Help: "Current length of each priority queue",
	}, []string{"priority"})
	InFlightJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mi_worker_inflight_jobs",
		Help: "Number of scraping jobs currently in flight",
	})
	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mi_circuit_breaker_state",
		Help: "0 Closed, 1 HalfOpen, 2 Open, per marketplace driver",
	}, []string{"marketplace"})
	CircuitBreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mi_circuit_breaker_trips_total",
		Help: "Count of times a driver's circuit breaker transitioned to Open",
	}, []string{"marketplace"})
)

func init() {
	prometheus.MustRegister(
		JobsEnqueued, JobsCompleted, JobsFailed, JobsCancelled,
		JobProcessingDuration, ProductsScraped, QueueLength,
		InFlightJobs, CircuitBreakerState, CircuitBreakerTrips,
	)
}
