package repository

import (
	"context"
	"time"

	"github.com/brikx/coach/internal/timeentry/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// batchSize bounds the IN list of one batch update.
const batchSize = 500

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.TimeEntry, error) {
	var items []*domain.TimeEntry
	stmt := db.WithContext(ctx).Model(&domain.TimeEntry{}).
		Where("user_id = ?", filter.UserID)

	if filter.ProjectID != nil {
		stmt = stmt.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.From != nil {
		stmt = stmt.Where("occurred_on >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("occurred_on <= ?", *filter.To)
	}
	if filter.Invoiced != nil {
		if *filter.Invoiced {
			stmt = stmt.Where("invoiced_at IS NOT NULL")
		} else {
			stmt = stmt.Where("invoiced_at IS NULL")
		}
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE time_entries
		 SET project_id = ?, phase_code = ?, occurred_on = ?, duration_minutes = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND invoiced_at IS NULL`,
		entry.ProjectID,
		entry.PhaseCode,
		entry.OccurredOn,
		entry.DurationMinutes,
		entry.Notes,
		entry.UpdatedAt,
		entry.ID,
		entry.UserID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM time_entries WHERE id = ? AND user_id = ? AND invoiced_at IS NULL`,
		id,
		userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListEligible(ctx context.Context, db *gorm.DB, filter domain.EligibleFilter) ([]domain.TimeEntry, error) {
	var items []domain.TimeEntry
	err := eligible(db.WithContext(ctx).Model(&domain.TimeEntry{}), filter).
		Order("occurred_on asc, created_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) MarkInvoiced(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedMinutes int, mark domain.InvoiceMark) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE time_entries
		 SET invoiced_at = ?, invoice_number = ?, updated_at = ?
		 WHERE id = ? AND invoiced_at IS NULL AND duration_minutes = ?`,
		mark.InvoicedAt,
		mark.InvoiceNumber,
		mark.UpdatedAt,
		id,
		expectedMinutes,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkInvoicedBatch(ctx context.Context, db *gorm.DB, ids []snowflake.ID, mark domain.InvoiceMark) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		res := db.WithContext(ctx).Model(&domain.TimeEntry{}).
			Where("id IN ? AND invoiced_at IS NULL", ids[start:end]).
			Updates(map[string]any{
				"invoiced_at":    mark.InvoicedAt,
				"invoice_number": mark.InvoiceNumber,
				"updated_at":     mark.UpdatedAt,
			})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (r *repo) CountByInvoiceNumber(ctx context.Context, db *gorm.DB, userID snowflake.ID, invoiceNumber string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.TimeEntry{}).
		Where("user_id = ? AND invoice_number = ?", userID, invoiceNumber).
		Count(&count).Error
	return count, err
}

func (r *repo) ShrinkUninvoiced(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedMinutes, remainderMinutes int, updatedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE time_entries
		 SET duration_minutes = ?, updated_at = ?
		 WHERE id = ? AND invoiced_at IS NULL AND duration_minutes = ?`,
		remainderMinutes,
		updatedAt,
		id,
		expectedMinutes,
	)
	return res.RowsAffected, res.Error
}

func eligible(stmt *gorm.DB, filter domain.EligibleFilter) *gorm.DB {
	stmt = stmt.
		Where("user_id = ?", filter.UserID).
		Where("invoiced_at IS NULL").
		Where("occurred_on <= ?", filter.Cutoff)
	if filter.ProjectID != nil {
		stmt = stmt.Where("project_id = ?", *filter.ProjectID)
	}
	return stmt
}
