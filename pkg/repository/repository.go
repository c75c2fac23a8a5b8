package repository

import (
	"context"

	"github.com/brikx/coach/pkg/db/option"
)

// Repository is a store for lookup tables: rows that are seeded and read,
// never edited by users.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	Count(ctx context.Context, query *T) (int64, error)
	// InsertMissing adds rows whose conflict columns are not present yet.
	InsertMissing(ctx context.Context, rows []T, conflictColumns ...string) error
}
