package domain

import (
	"context"
	"errors"
	"time"

	"github.com/brikx/coach/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*TimeEntry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (*TimeEntry, error)
	Update(ctx context.Context, req UpdateRequest) (*TimeEntry, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	ProjectID       string `json:"project_id"`
	PhaseCode       string `json:"phase_code"`
	OccurredOn      string `json:"occurred_on"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

type UpdateRequest struct {
	ID              string  `json:"-"`
	ProjectID       *string `json:"project_id"`
	PhaseCode       *string `json:"phase_code"`
	OccurredOn      *string `json:"occurred_on"`
	DurationMinutes *int    `json:"duration_minutes"`
	Notes           *string `json:"notes"`
}

type ListRequest struct {
	pagination.Pagination
	ProjectID string `form:"project_id"`
	From      string `form:"from"`
	To        string `form:"to"`
	Invoiced  *bool  `form:"invoiced"`
}

type ListResponse struct {
	pagination.PageInfo
	Entries []TimeEntry `json:"entries"`
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidID        = errors.New("invalid_time_entry_id")
	ErrInvalidProject   = errors.New("invalid_project")
	ErrInvalidDate      = errors.New("invalid_occurred_on")
	ErrInvalidDuration  = errors.New("invalid_duration")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrEntryInvoiced    = errors.New("entry_invoiced")
	ErrProjectArchived  = errors.New("project_archived")
	ErrNotFound         = errors.New("not_found")
)
