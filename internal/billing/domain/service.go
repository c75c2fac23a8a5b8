package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	// ModeAmount invoices entries until a target amount is reached.
	ModeAmount Mode = "amount"
	// ModeAll invoices every eligible entry.
	ModeAll Mode = "all"
)

type Service interface {
	Allocate(ctx context.Context, req AllocateRequest) (*AllocationResult, error)
	Preview(ctx context.Context, req AllocateRequest) (*AllocationResult, error)
	UnbilledSummary(ctx context.Context, req UnbilledRequest) (*UnbilledSummary, error)
}

// AllocateRequest selects the entries of one invoice. A nil TargetAmount invoices everything up to the cutoff.
type AllocateRequest struct {
	TargetAmount  *decimal.Decimal `json:"target_amount"`
	CutoffDate    string           `json:"cutoff_date"`
	ProjectID     string           `json:"project_id"`
	InvoiceDate   string           `json:"invoice_date"`
	InvoiceNumber string           `json:"invoice_number"`
}

type LineAction string

const (
	LineActionInvoiced LineAction = "invoiced"
	LineActionSplit    LineAction = "split"
)

type AllocationLine struct {
	EntryID string `json:"entry_id"`
	// InvoicedEntryID is the new entry holding the invoiced part of a split.
	InvoicedEntryID  string          `json:"invoiced_entry_id,omitempty"`
	ProjectID        string          `json:"project_id"`
	PhaseCode        string          `json:"phase_code"`
	OccurredOn       time.Time       `json:"occurred_on"`
	Rate             decimal.Decimal `json:"rate"`
	OriginalMinutes  int             `json:"original_minutes"`
	InvoicedMinutes  int             `json:"invoiced_minutes"`
	RemainderMinutes int             `json:"remainder_minutes"`
	InvoicedHours    decimal.Decimal `json:"invoiced_hours"`
	Amount           decimal.Decimal `json:"amount"`
	Action           LineAction      `json:"action"`
	ZeroRate         bool            `json:"zero_rate,omitempty"`
}

type AllocationResult struct {
	Mode   Mode `json:"mode"`
	DryRun bool `json:"dry_run"`
	// AlreadyInvoiced is set when an identical request was committed before; nothing is written.
	AlreadyInvoiced bool             `json:"already_invoiced,omitempty"`
	InvoiceNumber   *string          `json:"invoice_number,omitempty"`
	InvoiceDate     time.Time        `json:"invoice_date"`
	CutoffDate      time.Time        `json:"cutoff_date"`
	Currency        string           `json:"currency"`
	TargetAmount    *decimal.Decimal `json:"target_amount,omitempty"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	TotalMinutes    int              `json:"total_minutes"`
	Unallocated     decimal.Decimal  `json:"unallocated"`
	EntriesInvoiced int              `json:"entries_invoiced"`
	Splits          int              `json:"splits"`
	ZeroRateEntries int              `json:"zero_rate_entries"`
	SkippedFixedFee int              `json:"skipped_fixed_fee"`
	Lines           []AllocationLine `json:"lines"`
}

type UnbilledRequest struct {
	CutoffDate string `form:"cutoff_date" json:"cutoff_date"`
	ProjectID  string `form:"project_id" json:"project_id"`
}

type UnbilledLine struct {
	ProjectID   string          `json:"project_id"`
	BillingType string          `json:"billing_type"`
	PhaseCode   string          `json:"phase_code"`
	Entries     int             `json:"entries"`
	Minutes     int             `json:"minutes"`
	Hours       decimal.Decimal `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

type UnbilledSummary struct {
	CutoffDate   time.Time       `json:"cutoff_date"`
	Currency     string          `json:"currency"`
	Lines        []UnbilledLine  `json:"lines"`
	TotalMinutes int             `json:"total_minutes"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

var (
	ErrInvalidUser            = errors.New("invalid_user")
	ErrInvalidTargetAmount    = errors.New("invalid_target_amount")
	ErrInvalidCutoffDate      = errors.New("invalid_cutoff_date")
	ErrInvalidInvoiceDate     = errors.New("invalid_invoice_date")
	ErrInvalidProject         = errors.New("invalid_project")
	ErrConcurrentModification = errors.New("concurrent_modification")
	// ErrInvoiceNumberUsed rejects a number an earlier, different run already carries.
	ErrInvoiceNumberUsed = errors.New("invoice_number_used")
)
