package domain

import (
	"context"
	"errors"
)

// Phase is a named stage of project work. Codes are stable and referenced by
// time entries and project rate overrides.
type Phase struct {
	Code      string `gorm:"primaryKey;type:text" json:"code"`
	Name      string `gorm:"type:text;not null" json:"name"`
	SortOrder int    `gorm:"column:sort_order;not null" json:"sort_order"`
}

// TableName sets the database table name.
func (Phase) TableName() string { return "phases" }

// DefaultPhases is the lookup seeded on first start.
var DefaultPhases = []Phase{
	{Code: "preparation", Name: "Preparation", SortOrder: 10},
	{Code: "design", Name: "Design", SortOrder: 20},
	{Code: "development", Name: "Development", SortOrder: 30},
	{Code: "execution", Name: "Execution", SortOrder: 40},
	{Code: "support", Name: "Support", SortOrder: 50},
}

type Service interface {
	List(ctx context.Context) ([]Phase, error)
	Exists(ctx context.Context, code string) (bool, error)
}

var ErrInvalidPhase = errors.New("invalid_phase")
