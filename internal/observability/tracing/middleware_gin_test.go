package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brikx/coach/internal/usercontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareRecordsInvoiceRunSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	defer otel.SetTracerProvider(previous)

	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/api/v1/billing/allocate", func(c *gin.Context) {
		c.Request = c.Request.WithContext(usercontext.WithUserID(c.Request.Context(), snowflake.ID(7)))
		c.Set("invoice_number", "INV-7")
		c.Status(http.StatusOK)
	})
	r.GET("/api/v1/billing/unbilled", func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/billing/allocate", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/billing/unbilled", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	allocate := spans[0]
	assert.Equal(t, "HTTP POST /api/v1/billing/allocate", allocate.Name())
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range allocate.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "7", attrs["enduser.id"].AsString())
	assert.Equal(t, "INV-7", attrs["billing.invoice_number"].AsString())
	assert.Equal(t, int64(http.StatusOK), attrs["http.status_code"].AsInt64())
	assert.Equal(t, codes.Unset, allocate.Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
