package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AllocationRun records one committed allocation. Its fingerprint identifies
// the request, so an identical request later is answered from the record
// instead of invoicing the next entries.
type AllocationRun struct {
	ID              snowflake.ID        `gorm:"primaryKey"`
	UserID          snowflake.ID        `gorm:"column:user_id;not null;uniqueIndex:idx_allocation_runs_fingerprint,priority:1;uniqueIndex:idx_allocation_runs_invoice_number,priority:1"`
	Fingerprint     string              `gorm:"type:text;not null;uniqueIndex:idx_allocation_runs_fingerprint,priority:2"`
	InvoiceNumber   *string             `gorm:"column:invoice_number;type:text;uniqueIndex:idx_allocation_runs_invoice_number,priority:2"`
	Mode            Mode                `gorm:"type:text;not null"`
	TargetAmount    decimal.NullDecimal `gorm:"column:target_amount;type:numeric(12,2)"`
	CutoffDate      time.Time           `gorm:"column:cutoff_date;type:date;not null"`
	ProjectID       *snowflake.ID       `gorm:"column:project_id"`
	InvoiceDate     time.Time           `gorm:"column:invoice_date;type:date;not null"`
	EntriesInvoiced int                 `gorm:"column:entries_invoiced;not null"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CreatedAt       time.Time           `gorm:"not null"`
}

func (AllocationRun) TableName() string { return "allocation_runs" }

// RunKey is the part of a request that decides whether two runs are the same.
// InvoiceNumber is only the caller supplied number; derived numbers are not part of it.
type RunKey struct {
	Mode          Mode
	TargetAmount  *decimal.Decimal
	CutoffDate    time.Time
	ProjectID     *snowflake.ID
	InvoiceDate   time.Time
	InvoiceNumber string
}

func (k RunKey) Fingerprint() string {
	target := ""
	if k.TargetAmount != nil {
		target = k.TargetAmount.StringFixed(2)
	}
	project := ""
	if k.ProjectID != nil {
		project = k.ProjectID.String()
	}
	raw := strings.Join([]string{
		string(k.Mode),
		target,
		k.CutoffDate.Format("2006-01-02"),
		project,
		k.InvoiceDate.Format("2006-01-02"),
		k.InvoiceNumber,
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
