package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeDryRun  = "dry_run"
)

// BillingMetrics exposes invoicing allocator signals on the Prometheus registry.
type BillingMetrics struct {
	runs            *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runErrors       *prometheus.CounterVec
	entriesInvoiced *prometheus.CounterVec
	splits          prometheus.Counter
	unallocated     prometheus.Histogram
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

// Billing returns the process-wide billing metrics registered on the default registerer.
func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

// BillingWithConfig returns the singleton billing metrics using config labels.
func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "brikx-coach"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &BillingMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brikx_billing_allocation_runs_total",
			Help:        "Invoicing allocator runs by mode and outcome.",
			ConstLabels: constLabels,
		}, []string{"mode", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "brikx_billing_allocation_duration_seconds",
			Help:        "Invoicing allocator wall time including the database transaction.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"mode"}),
		runErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brikx_billing_allocation_errors_total",
			Help:        "Invoicing allocator failures by mode and reason.",
			ConstLabels: constLabels,
		}, []string{"mode", "reason"}),
		entriesInvoiced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brikx_billing_entries_invoiced_total",
			Help:        "Time entries marked invoiced, split halves included.",
			ConstLabels: constLabels,
		}, []string{"mode"}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brikx_billing_entry_splits_total",
			Help:        "Time entries split into an invoiced portion and a remainder.",
			ConstLabels: constLabels,
		}),
		unallocated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "brikx_billing_unallocated_amount",
			Help:        "Target amount left unbilled because eligible work ran out.",
			ConstLabels: constLabels,
			Buckets:     []float64{0, 10, 50, 100, 500, 1000, 5000},
		}),
	}

	registerer.MustRegister(m.runs, m.runDuration, m.runErrors, m.entriesInvoiced, m.splits, m.unallocated)
	return m
}

// ObserveRun records one allocator run.
func (m *BillingMetrics) ObserveRun(mode, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode, outcome).Inc()
	m.runDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// IncRunError counts a failed run with a low-cardinality reason.
func (m *BillingMetrics) IncRunError(mode string, err error) {
	if m == nil || err == nil {
		return
	}
	m.runErrors.WithLabelValues(mode, ClassifyErrorReason(err)).Inc()
}

// AddEntriesInvoiced adds to the invoiced entry counter.
func (m *BillingMetrics) AddEntriesInvoiced(mode string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.entriesInvoiced.WithLabelValues(mode).Add(float64(count))
}

// AddSplits adds to the split counter.
func (m *BillingMetrics) AddSplits(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.splits.Add(float64(count))
}

// ObserveUnallocated records the shortfall of an amount-targeted run.
func (m *BillingMetrics) ObserveUnallocated(amount float64) {
	if m == nil || amount < 0 {
		return
	}
	m.unallocated.Observe(amount)
}

// ClassifyErrorReason maps infrastructure errors to a metric label.
func ClassifyErrorReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return ReasonUniqueViolation
	case isDBError(err):
		return ReasonDB
	default:
		return ReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
