package repository

import (
	"context"

	"github.com/brikx/coach/internal/billing/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRun(ctx context.Context, db *gorm.DB, run *domain.AllocationRun) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) FindRunByFingerprint(ctx context.Context, db *gorm.DB, userID snowflake.ID, fingerprint string) (*domain.AllocationRun, error) {
	return r.findRun(ctx, db, "user_id = ? AND fingerprint = ?", userID, fingerprint)
}

func (r *repo) FindRunByInvoiceNumber(ctx context.Context, db *gorm.DB, userID snowflake.ID, invoiceNumber string) (*domain.AllocationRun, error) {
	return r.findRun(ctx, db, "user_id = ? AND invoice_number = ?", userID, invoiceNumber)
}

func (r *repo) findRun(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.AllocationRun, error) {
	var run domain.AllocationRun
	err := db.WithContext(ctx).
		Where(query, args...).
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == 0 {
		return nil, nil
	}
	return &run, nil
}
