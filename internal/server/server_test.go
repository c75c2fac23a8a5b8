package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apikeydomain "github.com/brikx/coach/internal/apikey/domain"
	apikeyrepository "github.com/brikx/coach/internal/apikey/repository"
	apikeyservice "github.com/brikx/coach/internal/apikey/service"
	auditrepository "github.com/brikx/coach/internal/audit/repository"
	auditservice "github.com/brikx/coach/internal/audit/service"
	billingdomain "github.com/brikx/coach/internal/billing/domain"
	billingrepository "github.com/brikx/coach/internal/billing/repository"
	billingservice "github.com/brikx/coach/internal/billing/service"
	"github.com/brikx/coach/internal/cache"
	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/config"
	mealplanrepository "github.com/brikx/coach/internal/mealplan/repository"
	mealplanservice "github.com/brikx/coach/internal/mealplan/service"
	"github.com/brikx/coach/internal/observability"
	phaseservice "github.com/brikx/coach/internal/phase/service"
	projectdomain "github.com/brikx/coach/internal/project/domain"
	projectrepository "github.com/brikx/coach/internal/project/repository"
	projectservice "github.com/brikx/coach/internal/project/service"
	"github.com/brikx/coach/internal/ratelimit"
	"github.com/brikx/coach/internal/testutil"
	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	timeentryrepository "github.com/brikx/coach/internal/timeentry/repository"
	timeentryservice "github.com/brikx/coach/internal/timeentry/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	engine *gin.Engine
	apiKey string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	log := zap.NewNop()
	fc := clock.NewFakeClock(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: fc,
	})
	apiKeySvc := apikeyservice.New(apikeyservice.Params{
		DB: db, Log: log, GenID: node, Repo: apikeyrepository.Provide(), Clock: fc, AuditSvc: auditSvc,
	})
	phaseSvc := phaseservice.New(phaseservice.Params{DB: db, Log: log})
	projectSvc := projectservice.New(projectservice.Params{
		DB: db, Log: log, GenID: node, Repo: projectrepository.Provide(), Phases: phaseSvc,
		Rates: cache.NewMemoryRateCache(time.Minute), Clock: fc, AuditSvc: auditSvc,
	})
	timeEntrySvc := timeentryservice.New(timeentryservice.Params{
		DB: db, Log: log, GenID: node, Repo: timeentryrepository.Provide(), Projects: projectSvc,
		Phases: phaseSvc, Clock: fc, AuditSvc: auditSvc,
	})
	limiter, err := ratelimit.NewLimiter(nil, config.Config{}, log)
	require.NoError(t, err)
	billingSvc := billingservice.New(billingservice.Params{
		DB: db, Log: log, GenID: node, Entries: timeentryrepository.Provide(), Runs: billingrepository.Provide(),
		Projects: projectSvc, Clock: fc, Config: config.NewStaticBillingConfig(config.DefaultBillingConfig()),
		Limiter: limiter, AuditSvc: auditSvc,
	})
	mealPlanSvc := mealplanservice.New(mealplanservice.Params{
		DB: db, Log: log, GenID: node, Repo: mealplanrepository.Provide(), Clock: fc,
	})

	user, err := apiKeySvc.EnsureUser(context.Background(), apikeydomain.EnsureUserRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	secret, err := apiKeySvc.CreateForUser(context.Background(), user.ID, apikeydomain.CreateRequest{Name: "tests"})
	require.NoError(t, err)

	engine := NewEngine(observability.Config{Environment: "test"}, nil)
	srv := NewServer(ServerParams{
		Engine:       engine,
		Cfg:          config.Config{Environment: "test"},
		APIKeySvc:    apiKeySvc,
		AuditSvc:     auditSvc,
		PhaseSvc:     phaseSvc,
		ProjectSvc:   projectSvc,
		TimeEntrySvc: timeEntrySvc,
		BillingSvc:   billingSvc,
		MealPlanSvc:  mealPlanSvc,
		Limiter:      limiter,
	})
	srv.RegisterRoutes()

	return &testServer{engine: engine, apiKey: secret.APIKey}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if ts.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+ts.apiKey)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer(t)
	valid := ts.apiKey

	ts.apiKey = ""
	w := ts.do(t, http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Type)

	ts.apiKey = valid + "x"
	w = ts.do(t, http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts.apiKey = valid
	w = ts.do(t, http.MethodGet, "/api/v1/phases", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	phases := decodeData[[]map[string]any](t, w)
	assert.Len(t, phases, 5)
}

func TestInvoiceFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/projects", map[string]any{
		"name":                "Kitchen remodel",
		"default_hourly_rate": "80",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decodeData[projectdomain.Response](t, w)

	var entryIDs []string
	for _, e := range []struct {
		on      string
		minutes int
	}{{"2024-01-01", 180}, {"2024-01-05", 120}, {"2024-01-10", 60}} {
		w = ts.do(t, http.MethodPost, "/api/v1/time-entries", map[string]any{
			"project_id":       project.ID,
			"phase_code":       "design",
			"occurred_on":      e.on,
			"duration_minutes": e.minutes,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		entry := decodeData[timeentrydomain.TimeEntry](t, w)
		entryIDs = append(entryIDs, entry.ID.String())
	}

	w = ts.do(t, http.MethodGet, "/api/v1/billing/unbilled?cutoff_date=2024-01-31", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decodeData[billingdomain.UnbilledSummary](t, w)
	assert.Equal(t, 360, summary.TotalMinutes)
	assert.Equal(t, "480", summary.TotalAmount.String())

	request := map[string]any{
		"target_amount":  "300",
		"cutoff_date":    "2024-01-31",
		"invoice_number": "INV-1",
	}

	w = ts.do(t, http.MethodPost, "/api/v1/billing/preview", request)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decodeData[billingdomain.AllocationResult](t, w)
	assert.True(t, preview.DryRun)
	assert.Equal(t, "300", preview.TotalAmount.String())

	w = ts.do(t, http.MethodPost, "/api/v1/billing/allocate", request)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeData[billingdomain.AllocationResult](t, w)
	assert.False(t, result.DryRun)
	assert.Equal(t, "300", result.TotalAmount.String())
	assert.Equal(t, 1, result.Splits)
	assert.Equal(t, 2, result.EntriesInvoiced)

	w = ts.do(t, http.MethodPost, "/api/v1/billing/allocate", request)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rerun := decodeData[billingdomain.AllocationResult](t, w)
	assert.True(t, rerun.AlreadyInvoiced)
	assert.Empty(t, rerun.Lines)

	w = ts.do(t, http.MethodPost, "/api/v1/billing/allocate", map[string]any{
		"target_amount":  "50",
		"cutoff_date":    "2024-01-31",
		"invoice_number": "INV-1",
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPatch, "/api/v1/time-entries/"+entryIDs[0], map[string]any{"notes": "late edit"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeError(t, w).Type)

	w = ts.do(t, http.MethodGet, "/api/v1/time-entries?invoiced=false", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	open := decodeData[[]timeentrydomain.TimeEntry](t, w)
	require.Len(t, open, 2)
	minutes := 0
	for _, e := range open {
		minutes += e.DurationMinutes
	}
	assert.Equal(t, 135, minutes)

	w = ts.do(t, http.MethodGet, "/api/v1/audit-logs?action=billing.invoice_allocated", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	logs := decodeData[[]map[string]any](t, w)
	require.Len(t, logs, 1)
	assert.Equal(t, "INV-1", logs[0]["target_id"])
}

func TestAllocateValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/billing/allocate", map[string]any{
		"target_amount": "-5",
		"cutoff_date":   "2024-01-31",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_target_amount", payload.Errors[0].Code)
	assert.Equal(t, "target_amount", payload.Errors[0].Field)

	w = ts.do(t, http.MethodPost, "/api/v1/billing/allocate", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_cutoff_date", decodeError(t, w).Errors[0].Code)

	w = ts.do(t, http.MethodGet, "/api/v1/time-entries?invoiced=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShoppingListRoutes(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/recipes", map[string]any{
		"name":     "Tomato soup",
		"servings": 2,
		"ingredients": []map[string]any{
			{"name": "Tomato", "quantity": "4", "unit": "pcs", "category": "Produce"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	recipe := decodeData[map[string]any](t, w)

	w = ts.do(t, http.MethodPost, "/api/v1/meal-plan", map[string]any{
		"recipe_id":  recipe["id"],
		"planned_on": "2024-01-16",
		"meal_type":  "dinner",
		"servings":   4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/shopping-list/items", map[string]any{
		"week_start": "2024-01-15",
		"name":       "tomato",
		"quantity":   "1",
		"unit":       "pcs",
		"category":   "produce",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/shopping-list?week_start=2024-01-15", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"produce"`)

	w = ts.do(t, http.MethodPost, "/api/v1/shopping-list/checked", map[string]any{
		"week_start": "2024-01-15",
		"item_key":   "",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{billingdomain.ErrInvalidTargetAmount, http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("wrapped: %w", timeentrydomain.ErrInvalidDuration), http.StatusBadRequest, "validation_error"},
		{billingdomain.ErrConcurrentModification, http.StatusConflict, "conflict"},
		{billingdomain.ErrInvoiceNumberUsed, http.StatusConflict, "conflict"},
		{ratelimit.ErrAllocationInProgress, http.StatusConflict, "conflict"},
		{timeentrydomain.ErrEntryInvoiced, http.StatusConflict, "conflict"},
		{projectdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{apikeydomain.ErrInvalidAPIKey, http.StatusUnauthorized, "unauthorized"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}

	kind, code := classifyErrorForLog(billingdomain.ErrInvalidCutoffDate)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_cutoff_date", code)
}
