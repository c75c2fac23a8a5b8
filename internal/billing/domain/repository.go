package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertRun(ctx context.Context, db *gorm.DB, run *AllocationRun) error
	// FindRunByFingerprint returns nil when the user has no run with fingerprint.
	FindRunByFingerprint(ctx context.Context, db *gorm.DB, userID snowflake.ID, fingerprint string) (*AllocationRun, error)
	// FindRunByInvoiceNumber returns nil when no run of the user carries invoiceNumber.
	FindRunByInvoiceNumber(ctx context.Context, db *gorm.DB, userID snowflake.ID, invoiceNumber string) (*AllocationRun, error)
}
