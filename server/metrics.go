package server

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"veil/veil-verifier/logging"
)

var (
	VerificationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_requests_total",
			Help: "Total number of verification requests by verifying key",
		},
		[]string{"verifying_key"},
	)

	VerificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verifier_verification_duration_seconds",
			Help:    "Duration of full proof verification in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"verifying_key"},
	)

	VerificationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_verification_errors_total",
			Help: "Total number of verification errors by verifying key",
		},
		[]string{"verifying_key", "error_type"},
	)

	VerificationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_verdicts_total",
			Help: "Total number of completed verifications by verdict",
		},
		[]string{"verifying_key", "verdict"},
	)

	InstructionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_instructions_executed_total",
			Help: "Total number of verification instructions executed",
		},
		[]string{"verifying_key"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_jobs_processed_total",
			Help: "Total number of queued jobs processed",
		},
		[]string{"status"},
	)

	ActiveVerifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verifier_active_verifications",
			Help: "Number of currently running verifications",
		},
	)

	RequestBodySize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verifier_request_body_size_bytes",
			Help:    "Size of verification request bodies in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 2, 10),
		},
	)

	SystemMemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "verifier_system_memory_bytes",
			Help: "System memory statistics",
		},
		[]string{"type"}, // heap_alloc, heap_sys, heap_inuse, sys
	)
)

type MetricTimer struct {
	start        time.Time
	verifyingKey string
}

func StartVerificationTimer(verifyingKey string) *MetricTimer {
	VerificationRequestsTotal.WithLabelValues(verifyingKey).Inc()
	ActiveVerifications.Inc()

	updateMemoryGauges()

	return &MetricTimer{
		start:        time.Now(),
		verifyingKey: verifyingKey,
	}
}

func (t *MetricTimer) ObserveDuration() {
	duration := time.Since(t.start).Seconds()
	VerificationDuration.WithLabelValues(t.verifyingKey).Observe(duration)
	ActiveVerifications.Dec()

	updateMemoryGauges()
}

func (t *MetricTimer) ObserveError(errorType string) {
	VerificationErrors.WithLabelValues(t.verifyingKey, errorType).Inc()
	ActiveVerifications.Dec()

	updateMemoryGauges()
}

func updateMemoryGauges() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	SystemMemoryUsage.WithLabelValues("heap_alloc").Set(float64(memStats.HeapAlloc))
	SystemMemoryUsage.WithLabelValues("heap_sys").Set(float64(memStats.HeapSys))
	SystemMemoryUsage.WithLabelValues("heap_inuse").Set(float64(memStats.HeapInuse))
	SystemMemoryUsage.WithLabelValues("sys").Set(float64(memStats.Sys))
}

func RecordVerdict(verifyingKey string, verified bool) {
	if verified {
		VerificationVerdicts.WithLabelValues(verifyingKey, "verified").Inc()
	} else {
		VerificationVerdicts.WithLabelValues(verifyingKey, "rejected").Inc()
	}
}

func RecordInstructions(verifyingKey string, count int) {
	InstructionsExecuted.WithLabelValues(verifyingKey).Add(float64(count))

	logging.Logger().Debug().
		Str("verifying_key", verifyingKey).
		Int("instructions", count).
		Msg("Verification instructions executed")
}

func RecordJobComplete(success bool) {
	if success {
		JobsProcessed.WithLabelValues("completed").Inc()
	} else {
		JobsProcessed.WithLabelValues("failed").Inc()
	}
}

func RecordRequestBodySize(sizeBytes int) {
	RequestBodySize.Observe(float64(sizeBytes))
}
