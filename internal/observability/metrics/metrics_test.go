package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("mode", "amount"),
		attribute.String("user_id", "456"),
		attribute.String("outcome", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "mode" && attrs[1].Key != "mode" {
		t.Fatalf("expected mode to be retained")
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
}

func TestInstrumentsOnNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "brikx-coach"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	ctx := context.Background()
	m.RecordAllocationRun(ctx, "amount", OutcomeSuccess, 3)
	m.RecordEntryMutation(ctx, "create")
	m.RecordShoppingListBuild(ctx)

	var nilMetrics *Metrics
	nilMetrics.RecordAllocationRun(ctx, "all", OutcomeError, 0)
}
