package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics provides Prometheus metrics for hms.
type Metrics struct {
	config MetricsConfig

	// Store metrics
	storeOperations *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec

	// Record metrics
	recordsCreated *prometheus.CounterVec
	recordsDeleted *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Billing metrics
	receiptsIssued prometheus.Counter
	billedAmount   prometheus.Counter

	// Auth metrics
	authAttempts *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of record store operations",
			},
			[]string{"operation", "status"},
		),
		storeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of record store operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),

		recordsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_created_total",
				Help:      "Total number of records inserted",
			},
			[]string{"table"},
		),
		recordsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_deleted_total",
				Help:      "Total number of records removed",
			},
			[]string{"table"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		receiptsIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_receipts_issued_total",
				Help:      "Total number of bill receipts issued",
			},
		),
		billedAmount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_amount_total",
				Help:      "Sum of billed totals including taxes",
			},
		),

		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of login attempts",
			},
			[]string{"result"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.storeOperations,
		m.storeDuration,
		m.recordsCreated,
		m.recordsDeleted,
		m.errorsByClass,
		m.errorsByCode,
		m.receiptsIssued,
		m.billedAmount,
		m.authAttempts,
	)

	return m, nil
}

// Store Metrics

// RecordStoreOperation records a store operation with its status and duration.
func (m *Metrics) RecordStoreOperation(operation, status string, duration time.Duration) {
	if m.storeOperations == nil {
		return
	}
	m.storeOperations.WithLabelValues(operation, status).Inc()
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRecordsCreated adds n to the created counter for table.
func (m *Metrics) RecordRecordsCreated(table string, n int64) {
	if m.recordsCreated == nil {
		return
	}
	m.recordsCreated.WithLabelValues(table).Add(float64(n))
}

// RecordRecordsDeleted adds n to the deleted counter for table.
func (m *Metrics) RecordRecordsDeleted(table string, n int64) {
	if m.recordsDeleted == nil {
		return
	}
	m.recordsDeleted.WithLabelValues(table).Add(float64(n))
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	if errorClass == "" {
		errorClass = "unknown"
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Billing Metrics

// RecordReceiptIssued records an issued receipt and its grand total.
func (m *Metrics) RecordReceiptIssued(total float64) {
	if m.receiptsIssued == nil {
		return
	}
	m.receiptsIssued.Inc()
	m.billedAmount.Add(total)
}

// Auth Metrics

// RecordAuthAttempt records a login attempt (result is "success" or "failure").
func (m *Metrics) RecordAuthAttempt(result string) {
	if m.authAttempts == nil {
		return
	}
	m.authAttempts.WithLabelValues(result).Inc()
}

// Registry returns the private registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every registered metric family to w in the Prometheus
// text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m.registry == nil {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
