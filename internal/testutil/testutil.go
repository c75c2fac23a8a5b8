// Package testutil opens throwaway databases for service tests.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	apikeydomain "github.com/brikx/coach/internal/apikey/domain"
	"github.com/brikx/coach/internal/migration"
	"github.com/brikx/coach/internal/seed"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns an in-memory sqlite database with the full schema and seeded
// phases. Each test gets its own database named after the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// Services read outside an open transaction, so more than one connection is needed.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(conn))
	require.NoError(t, seed.EnsurePhases(conn))
	return conn
}

func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// SeedUser inserts a user and returns a context acting as that user.
func SeedUser(t *testing.T, db *gorm.DB, node *snowflake.Node, email string) (snowflake.ID, context.Context) {
	t.Helper()
	user := apikeydomain.User{
		ID:          node.Generate(),
		Email:       email,
		DisplayName: strings.Split(email, "@")[0],
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&user).Error)
	return user.ID, usercontext.WithUserID(context.Background(), user.ID)
}

// Date is a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
