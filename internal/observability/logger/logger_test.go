package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brikx/coach/internal/auditcontext"
	obscontext "github.com/brikx/coach/internal/observability/context"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWithContextAddsKnownCorrelation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = usercontext.WithUserID(ctx, snowflake.ID(42))
	ctx = auditcontext.WithActor(ctx, "cli", "ada@example.com")

	WithContext(ctx, zap.New(core)).Info("allocated")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["user_id"])
	assert.Equal(t, "cli", fields["actor_type"])
	assert.Equal(t, "ada@example.com", fields["actor_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFor("/health", http.StatusOK, ""))
	assert.Equal(t, zapcore.InfoLevel, levelFor("/api/v1/projects", http.StatusCreated, ""))
	assert.Equal(t, zapcore.InfoLevel, levelFor("/api/v1/billing/allocate", http.StatusBadRequest, "validation_error"))
	assert.Equal(t, zapcore.WarnLevel, levelFor("/api/v1/billing/allocate", http.StatusConflict, "conflict"))
	assert.Equal(t, zapcore.ErrorLevel, levelFor("/api/v1/billing/allocate", http.StatusInternalServerError, "internal_error"))
}

func TestGinMiddlewareLogsInvoiceRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.POST("/api/v1/billing/allocate", func(c *gin.Context) {
		c.Request = c.Request.WithContext(usercontext.WithUserID(c.Request.Context(), snowflake.ID(7)))
		c.Set("invoice_number", "INV-7")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/allocate", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc", w.Header().Get("X-Request-Id"))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, "7", fields["user_id"])
	assert.Equal(t, "INV-7", fields["invoice_number"])
	assert.Equal(t, "/api/v1/billing/allocate", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}
