package repository

import (
	"context"
	"testing"

	"github.com/brikx/coach/pkg/db/option"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type unit struct {
	Code      string `gorm:"primaryKey;type:text"`
	Label     string `gorm:"type:text;not null"`
	SortOrder int    `gorm:"not null"`
}

func openStore(t *testing.T) Repository[unit] {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&unit{}))
	return ProvideStore[unit](conn)
}

func TestInsertMissingKeepsExistingRows(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertMissing(ctx, []unit{{Code: "g", Label: "gram", SortOrder: 2}}, "code"))
	require.NoError(t, store.InsertMissing(ctx, []unit{
		{Code: "g", Label: "renamed", SortOrder: 9},
		{Code: "ml", Label: "millilitre", SortOrder: 1},
	}, "code"))
	require.NoError(t, store.InsertMissing(ctx, nil, "code"))

	rows, err := store.Find(ctx, &unit{}, option.OrderBy("sort_order asc"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ml", rows[0].Code)
	assert.Equal(t, "gram", rows[1].Label)
}

func TestCountMatchesQueryFields(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertMissing(ctx, []unit{{Code: "g", Label: "gram", SortOrder: 1}}, "code"))

	count, err := store.Count(ctx, &unit{Code: "g"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.Count(ctx, &unit{Code: "kg"})
	require.NoError(t, err)
	assert.Zero(t, count)
}
