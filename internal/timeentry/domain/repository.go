package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID    snowflake.ID
	ProjectID *snowflake.ID
	From      *time.Time
	To        *time.Time
	Invoiced  *bool
	Cursor    *Cursor
	Limit     int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// EligibleFilter selects uninvoiced entries on or before Cutoff.
type EligibleFilter struct {
	UserID    snowflake.ID
	Cutoff    time.Time
	ProjectID *snowflake.ID
}

// InvoiceMark stamps entries as invoiced.
type InvoiceMark struct {
	InvoicedAt    time.Time
	InvoiceNumber *string
	UpdatedAt     time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *TimeEntry) error
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*TimeEntry, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*TimeEntry, error)
	Update(ctx context.Context, db *gorm.DB, entry *TimeEntry) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)

	// ListEligible returns entries ordered by occurred_on, created_at, id.
	ListEligible(ctx context.Context, db *gorm.DB, filter EligibleFilter) ([]TimeEntry, error)
	// MarkInvoiced stamps one entry if it is still uninvoiced with the expected duration.
	MarkInvoiced(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedMinutes int, mark InvoiceMark) (int64, error)
	// MarkInvoicedBatch stamps the given entries that are still uninvoiced.
	MarkInvoicedBatch(ctx context.Context, db *gorm.DB, ids []snowflake.ID, mark InvoiceMark) (int64, error)
	// CountByInvoiceNumber counts the user's entries already carrying invoiceNumber.
	CountByInvoiceNumber(ctx context.Context, db *gorm.DB, userID snowflake.ID, invoiceNumber string) (int64, error)
	// ShrinkUninvoiced reduces a still-uninvoiced entry from expectedMinutes to remainderMinutes.
	ShrinkUninvoiced(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedMinutes, remainderMinutes int, updatedAt time.Time) (int64, error)
}
