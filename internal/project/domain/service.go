package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Archive(ctx context.Context, id string) (*Response, error)
	SetPhase(ctx context.Context, req SetPhaseRequest) (*Response, error)
	ResolveRates(ctx context.Context, projectIDs []snowflake.ID) (map[snowflake.ID]RateTable, error)
	SnapshotRates(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) (map[snowflake.ID]RateTable, error)
	BudgetReport(ctx context.Context, id string) (*BudgetReport, error)
}

type CreateRequest struct {
	Name              string          `json:"name"`
	DefaultHourlyRate decimal.Decimal `json:"default_hourly_rate"`
	BillingType       BillingType     `json:"billing_type"`
}

type ListRequest struct {
	IncludeArchived bool `form:"include_archived"`
}

type UpdateRequest struct {
	ID                string           `json:"-"`
	Name              *string          `json:"name"`
	DefaultHourlyRate *decimal.Decimal `json:"default_hourly_rate"`
	BillingType       *BillingType     `json:"billing_type"`
}

// SetPhaseRequest replaces the override row of one phase. Both fields nil removes it.
type SetPhaseRequest struct {
	ProjectID  string           `json:"-"`
	PhaseCode  string           `json:"-"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
	Budget     *decimal.Decimal `json:"budget"`
}

type PhaseResponse struct {
	PhaseCode  string           `json:"phase_code"`
	HourlyRate *decimal.Decimal `json:"hourly_rate,omitempty"`
	Budget     *decimal.Decimal `json:"budget,omitempty"`
}

type Response struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	DefaultHourlyRate decimal.Decimal `json:"default_hourly_rate"`
	BillingType       BillingType     `json:"billing_type"`
	Archived          bool            `json:"archived"`
	Phases            []PhaseResponse `json:"phases"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type BudgetLine struct {
	PhaseCode     string          `json:"phase_code"`
	Budget        decimal.Decimal `json:"budget"`
	Rate          decimal.Decimal `json:"rate"`
	LoggedMinutes int64           `json:"logged_minutes"`
	LoggedAmount  decimal.Decimal `json:"logged_amount"`
	Remaining     decimal.Decimal `json:"remaining"`
	OverBudget    bool            `json:"over_budget"`
}

// BudgetReport compares fixed-fee phase budgets with the value of time logged against them.
type BudgetReport struct {
	ProjectID    string          `json:"project_id"`
	Lines        []BudgetLine    `json:"lines"`
	TotalBudget  decimal.Decimal `json:"total_budget"`
	TotalLogged  decimal.Decimal `json:"total_logged"`
	TotalMinutes int64           `json:"total_minutes"`
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidID           = errors.New("invalid_project_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidRate         = errors.New("invalid_hourly_rate")
	ErrInvalidBillingType  = errors.New("invalid_billing_type")
	ErrInvalidBudget       = errors.New("invalid_budget")
	ErrBudgetRequiresFixed = errors.New("budget_requires_fixed_fee")
	ErrNotFixedFee         = errors.New("project_not_fixed_fee")
	ErrArchived            = errors.New("project_archived")
	ErrNotFound            = errors.New("not_found")
)
