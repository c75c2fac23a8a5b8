package server

import (
	"errors"
	"net/http"
	"strings"

	apikeydomain "github.com/brikx/coach/internal/apikey/domain"
	auditdomain "github.com/brikx/coach/internal/audit/domain"
	billingdomain "github.com/brikx/coach/internal/billing/domain"
	mealplandomain "github.com/brikx/coach/internal/mealplan/domain"
	phasedomain "github.com/brikx/coach/internal/phase/domain"
	projectdomain "github.com/brikx/coach/internal/project/domain"
	"github.com/brikx/coach/internal/ratelimit"
	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

var validationErrors = []error{
	ErrInvalidRequest,
	billingdomain.ErrInvalidTargetAmount,
	billingdomain.ErrInvalidCutoffDate,
	billingdomain.ErrInvalidInvoiceDate,
	billingdomain.ErrInvalidProject,
	projectdomain.ErrInvalidID,
	projectdomain.ErrInvalidName,
	projectdomain.ErrInvalidRate,
	projectdomain.ErrInvalidBillingType,
	projectdomain.ErrInvalidBudget,
	projectdomain.ErrBudgetRequiresFixed,
	projectdomain.ErrNotFixedFee,
	phasedomain.ErrInvalidPhase,
	timeentrydomain.ErrInvalidID,
	timeentrydomain.ErrInvalidProject,
	timeentrydomain.ErrInvalidDate,
	timeentrydomain.ErrInvalidDuration,
	timeentrydomain.ErrInvalidDateRange,
	timeentrydomain.ErrInvalidPageToken,
	mealplandomain.ErrInvalidID,
	mealplandomain.ErrInvalidName,
	mealplandomain.ErrInvalidServings,
	mealplandomain.ErrInvalidQuantity,
	mealplandomain.ErrInvalidDate,
	mealplandomain.ErrInvalidMealType,
	mealplandomain.ErrInvalidItemKey,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
	apikeydomain.ErrInvalidEmail,
	apikeydomain.ErrInvalidName,
	apikeydomain.ErrInvalidKeyID,
}

var unauthorizedErrors = []error{
	ErrUnauthorized,
	apikeydomain.ErrInvalidAPIKey,
	apikeydomain.ErrInvalidUser,
	billingdomain.ErrInvalidUser,
	projectdomain.ErrInvalidUser,
	timeentrydomain.ErrInvalidUser,
	mealplandomain.ErrInvalidUser,
	auditdomain.ErrInvalidUser,
}

var conflictErrors = []error{
	ErrConflict,
	billingdomain.ErrConcurrentModification,
	billingdomain.ErrInvoiceNumberUsed,
	ratelimit.ErrAllocationInProgress,
	timeentrydomain.ErrEntryInvoiced,
	timeentrydomain.ErrProjectArchived,
	projectdomain.ErrArchived,
}

var notFoundErrors = []error{
	ErrNotFound,
	projectdomain.ErrNotFound,
	timeentrydomain.ErrNotFound,
	mealplandomain.ErrNotFound,
	mealplandomain.ErrRecipeNotFound,
	apikeydomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if matchesAny(err, validationErrors) {
		code := err.Error()
		if errors.Is(err, ErrInvalidRequest) {
			code = ErrInvalidRequest.Error()
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case matchesAny(err, unauthorizedErrors):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case matchesAny(err, conflictErrors):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type/code pair the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if payload.Type != "internal_error" {
		code = err.Error()
	}
	return payload.Type, code
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, billingdomain.ErrConcurrentModification):
		return "time entries changed during the invoice run; nothing was written"
	case errors.Is(err, billingdomain.ErrInvoiceNumberUsed):
		return "invoice number already belongs to a different invoice run"
	case errors.Is(err, ratelimit.ErrAllocationInProgress):
		return "another invoice run is in progress"
	case errors.Is(err, timeentrydomain.ErrEntryInvoiced):
		return "invoiced time entries cannot be changed"
	case errors.Is(err, timeentrydomain.ErrProjectArchived),
		errors.Is(err, projectdomain.ErrArchived):
		return "project is archived"
	default:
		return "conflict"
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "budget_requires_fixed_fee":
		return "budgets are only allowed on fixed-fee projects"
	case "project_not_fixed_fee":
		return "project is not billed at a fixed fee"
	default:
		return "invalid value"
	}
}
