package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// MaxDurationMinutes caps a single entry at one day.
const MaxDurationMinutes = 24 * 60

// TimeEntry is a logged block of work. DurationMinutes is the only stored
// duration; hours are derived where money is computed or shown.
type TimeEntry struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID      `gorm:"column:user_id;not null;index:idx_time_entries_eligible,priority:1" json:"user_id"`
	ProjectID       snowflake.ID      `gorm:"column:project_id;not null;index" json:"project_id"`
	PhaseCode       string            `gorm:"column:phase_code;type:text;not null" json:"phase_code"`
	OccurredOn      time.Time         `gorm:"column:occurred_on;type:date;not null;index:idx_time_entries_eligible,priority:3" json:"occurred_on"`
	DurationMinutes int               `gorm:"column:duration_minutes;not null" json:"duration_minutes"`
	Notes           string            `gorm:"type:text;not null;default:''" json:"notes"`
	InvoicedAt      *time.Time        `gorm:"column:invoiced_at;type:date;index:idx_time_entries_eligible,priority:2" json:"invoiced_at,omitempty"`
	InvoiceNumber   *string           `gorm:"column:invoice_number;type:text;index" json:"invoice_number,omitempty"`
	SplitFromID     *snowflake.ID     `gorm:"column:split_from_id" json:"split_from_id,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (TimeEntry) TableName() string { return "time_entries" }

func (e TimeEntry) Invoiced() bool {
	return e.InvoicedAt != nil
}

// Hours derives the decimal hour count from the stored minutes.
func (e TimeEntry) Hours() float64 {
	return float64(e.DurationMinutes) / 60
}
