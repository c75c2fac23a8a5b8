package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyErrorReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonDeadlineExceeded},
		{name: "wrapped_deadline", err: fmt.Errorf("load entries: %w", context.Canceled), want: ReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: ReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: ReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: ReasonUniqueViolation},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: ReasonDB},
		{name: "unknown", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyErrorReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBillingMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newBillingMetrics(registry, Config{ServiceName: "brikx-coach", Environment: "test"})

	m.ObserveRun("amount", OutcomeSuccess, 20*time.Millisecond)
	m.AddEntriesInvoiced("amount", 2)
	m.AddEntriesInvoiced("amount", 0)
	m.AddSplits(1)
	m.IncRunError("amount", &pgconn.PgError{Code: "40001"})

	if got := testutil.ToFloat64(m.runs.WithLabelValues("amount", OutcomeSuccess)); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(m.entriesInvoiced.WithLabelValues("amount")); got != 2 {
		t.Fatalf("expected 2 invoiced entries, got %v", got)
	}
	if got := testutil.ToFloat64(m.splits); got != 1 {
		t.Fatalf("expected 1 split, got %v", got)
	}
	if got := testutil.ToFloat64(m.runErrors.WithLabelValues("amount", ReasonSerializationFailure)); got != 1 {
		t.Fatalf("expected 1 serialization failure, got %v", got)
	}
}

func TestNilBillingMetricsIsSafe(t *testing.T) {
	var m *BillingMetrics
	m.ObserveRun("all", OutcomeSuccess, time.Second)
	m.IncRunError("all", errors.New("boom"))
	m.AddEntriesInvoiced("all", 3)
	m.AddSplits(1)
	m.ObserveUnallocated(12)
}
