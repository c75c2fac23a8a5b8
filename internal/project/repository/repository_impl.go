package repository

import (
	"context"

	"github.com/brikx/coach/internal/project/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO projects (id, user_id, name, default_hourly_rate, billing_type, archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.UserID,
		p.Name,
		p.DefaultHourlyRate,
		p.BillingType,
		p.Archived,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`UPDATE projects
		 SET name = ?, default_hourly_rate = ?, billing_type = ?, archived = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		p.Name,
		p.DefaultHourlyRate,
		p.BillingType,
		p.Archived,
		p.UpdatedAt,
		p.ID,
		p.UserID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) ([]domain.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Project
	err := db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID, includeArchived bool) ([]domain.Project, error) {
	var items []domain.Project
	stmt := db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeArchived {
		stmt = stmt.Where("archived = ?", false)
	}
	err := stmt.Order("name asc, id asc").Find(&items).Error
	return items, err
}

func (r *repo) UpsertPhase(ctx context.Context, db *gorm.DB, ph *domain.ProjectPhase) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "phase_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"hourly_rate", "budget", "updated_at"}),
	}).Create(ph).Error
}

func (r *repo) DeletePhase(ctx context.Context, db *gorm.DB, projectID snowflake.ID, phaseCode string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM project_phases WHERE project_id = ? AND phase_code = ?`,
		projectID,
		phaseCode,
	).Error
}

func (r *repo) ListPhases(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]domain.ProjectPhase, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	var items []domain.ProjectPhase
	err := db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("project_id asc, phase_code asc").
		Find(&items).Error
	return items, err
}

func (r *repo) SumMinutesByPhase(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]domain.PhaseMinutes, error) {
	var rows []domain.PhaseMinutes
	err := db.WithContext(ctx).Raw(
		`SELECT phase_code, COALESCE(SUM(duration_minutes), 0) AS minutes
		 FROM time_entries
		 WHERE project_id = ?
		 GROUP BY phase_code
		 ORDER BY phase_code`,
		projectID,
	).Scan(&rows).Error
	return rows, err
}
