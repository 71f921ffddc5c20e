package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "rentbilling_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	jobRunsTotal    *prometheus.CounterVec
	jobRunLatency   *prometheus.HistogramVec
	jobItemsTotal   *prometheus.CounterVec
	jobSkippedTotal *prometheus.CounterVec

	paymentTotal   *prometheus.CounterVec
	paymentLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	notificationsTotal *prometheus.CounterVec

	consumerLag *prometheus.GaugeVec

	outboxDispatchTotal   *prometheus.CounterVec
	outboxDispatchLatency *prometheus.HistogramVec
	outboxDispatchRecords *prometheus.CounterVec
)

// Init registers billing metrics and DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		jobRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "job_runs_total",
				Help: "Total automation job runs by job and result",
			},
			[]string{"job", "result"},
		)
		jobRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "job_run_duration_seconds",
				Help:    "Automation job run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job", "result"},
		)
		jobItemsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "job_items_total",
				Help: "Items processed by automation jobs by outcome",
			},
			[]string{"job", "outcome"},
		)
		jobSkippedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "job_ticks_skipped_total",
				Help: "Scheduler ticks skipped by job and reason",
			},
			[]string{"job", "reason"},
		)

		paymentTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_total",
				Help: "Total payment recordings by result",
			},
			[]string{"result"},
		)
		paymentLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_latency_seconds",
				Help:    "Payment recording latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total invoice export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Invoice export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		notificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notification deliveries by channel and result",
			},
			[]string{"channel", "result"},
		)

		consumerLag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "event_consumer_lag_seconds",
				Help: "Consumer processing lag in seconds",
			},
			[]string{"consumer"},
		)

		outboxDispatchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_total",
				Help: "Outbox dispatch runs by result",
			},
			[]string{"result"},
		)
		outboxDispatchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "outbox_dispatch_latency_seconds",
				Help:    "Outbox dispatch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		outboxDispatchRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_records_total",
				Help: "Outbox records dispatched by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			jobRunsTotal,
			jobRunLatency,
			jobItemsTotal,
			jobSkippedTotal,
			paymentTotal,
			paymentLatency,
			exportTotal,
			exportLatency,
			notificationsTotal,
			consumerLag,
			outboxDispatchTotal,
			outboxDispatchLatency,
			outboxDispatchRecords,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveJobRun records a job run duration and result.
func ObserveJobRun(job, result string, duration time.Duration) {
	if job == "" {
		job = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if jobRunsTotal != nil {
		jobRunsTotal.WithLabelValues(job, result).Inc()
	}
	if jobRunLatency != nil {
		jobRunLatency.WithLabelValues(job, result).Observe(duration.Seconds())
	}
}

// AddJobItems adds item outcomes for a job run.
func AddJobItems(job, outcome string, count int) {
	if count <= 0 {
		return
	}
	if jobItemsTotal != nil {
		jobItemsTotal.WithLabelValues(job, outcome).Add(float64(count))
	}
}

// IncJobSkipped counts a tick that did not run.
func IncJobSkipped(job, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if jobSkippedTotal != nil {
		jobSkippedTotal.WithLabelValues(job, reason).Inc()
	}
}

// ObservePayment records payment latency and result.
func ObservePayment(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if paymentTotal != nil {
		paymentTotal.WithLabelValues(result).Inc()
	}
	if paymentLatency != nil {
		paymentLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncNotification counts a notification delivery attempt.
func IncNotification(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(channel, result).Inc()
	}
}

// ObserveConsumerLag sets consumer lag in seconds.
func ObserveConsumerLag(consumer string, lag time.Duration) {
	if consumer == "" {
		consumer = "unknown"
	}
	if lag < 0 {
		lag = 0
	}
	if consumerLag != nil {
		consumerLag.WithLabelValues(consumer).Set(lag.Seconds())
	}
}

// ObserveOutboxDispatch records a dispatch run.
func ObserveOutboxDispatch(result string, duration time.Duration, sent, failed, dlq int) {
	if result == "" {
		result = resultSuccess
	}
	if outboxDispatchTotal != nil {
		outboxDispatchTotal.WithLabelValues(result).Inc()
	}
	if outboxDispatchLatency != nil {
		outboxDispatchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if outboxDispatchRecords != nil {
		if sent > 0 {
			outboxDispatchRecords.WithLabelValues("sent").Add(float64(sent))
		}
		if failed > 0 {
			outboxDispatchRecords.WithLabelValues("failed").Add(float64(failed))
		}
		if dlq > 0 {
			outboxDispatchRecords.WithLabelValues("dlq").Add(float64(dlq))
		}
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
