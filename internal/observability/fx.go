package observability

import (
	"github.com/brikx/coach/internal/observability/logger"
	"github.com/brikx/coach/internal/observability/metrics"
	"github.com/brikx/coach/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires logging, tracing and metrics for both the API server and coachctl.
var Module = fx.Module("observability",
	fx.Provide(
		FromAppConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.BillingWithConfig,
	),
	// The tracer provider has no consumers in the graph but must install itself globally.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
