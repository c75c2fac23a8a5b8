package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type BillingType string

const (
	BillingTypeHourly BillingType = "hourly"
	BillingTypeFixed  BillingType = "fixed"
)

func (t BillingType) Valid() bool {
	return t == BillingTypeHourly || t == BillingTypeFixed
}

type Project struct {
	ID                snowflake.ID    `gorm:"primaryKey"`
	UserID            snowflake.ID    `gorm:"column:user_id;not null;index"`
	Name              string          `gorm:"type:text;not null"`
	DefaultHourlyRate decimal.Decimal `gorm:"column:default_hourly_rate;type:numeric(12,2);not null"`
	BillingType       BillingType     `gorm:"column:billing_type;type:text;not null"`
	Archived          bool            `gorm:"not null;default:false"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// ProjectPhase carries per-phase rate overrides and fixed-fee budgets.
type ProjectPhase struct {
	ProjectID  snowflake.ID        `gorm:"column:project_id;primaryKey"`
	PhaseCode  string              `gorm:"column:phase_code;primaryKey;type:text"`
	HourlyRate decimal.NullDecimal `gorm:"column:hourly_rate;type:numeric(12,2)"`
	Budget     decimal.NullDecimal `gorm:"column:budget;type:numeric(12,2)"`
	UpdatedAt  time.Time           `gorm:"not null"`
}

// TableName sets the database table name.
func (ProjectPhase) TableName() string { return "project_phases" }

// RateTable is the resolved pricing of one project.
type RateTable struct {
	ProjectID   snowflake.ID               `json:"project_id"`
	UserID      snowflake.ID               `json:"user_id"`
	BillingType BillingType                `json:"billing_type"`
	Default     decimal.Decimal            `json:"default"`
	Phases      map[string]decimal.Decimal `json:"phases,omitempty"`
}

// Resolve returns the phase override if present, else the project default.
// ok is false when the resolved rate is not positive.
func (r RateTable) Resolve(phaseCode string) (decimal.Decimal, bool) {
	if rate, found := r.Phases[phaseCode]; found {
		return rate, rate.IsPositive()
	}
	return r.Default, r.Default.IsPositive()
}

// NewRateTable builds the rate table from a project row and its phase rows.
func NewRateTable(p Project, phases []ProjectPhase) RateTable {
	table := RateTable{
		ProjectID:   p.ID,
		UserID:      p.UserID,
		BillingType: p.BillingType,
		Default:     p.DefaultHourlyRate,
		Phases:      map[string]decimal.Decimal{},
	}
	for _, ph := range phases {
		if ph.HourlyRate.Valid {
			table.Phases[ph.PhaseCode] = ph.HourlyRate.Decimal
		}
	}
	return table
}
