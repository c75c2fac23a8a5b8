package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PhaseMinutes is the logged time of one phase of a project.
type PhaseMinutes struct {
	PhaseCode string
	Minutes   int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Project) error
	Update(ctx context.Context, db *gorm.DB, p *Project) error
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Project, error)
	FindByIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) ([]Project, error)
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID, includeArchived bool) ([]Project, error)

	UpsertPhase(ctx context.Context, db *gorm.DB, ph *ProjectPhase) error
	DeletePhase(ctx context.Context, db *gorm.DB, projectID snowflake.ID, phaseCode string) error
	ListPhases(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]ProjectPhase, error)

	SumMinutesByPhase(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]PhaseMinutes, error)
}
