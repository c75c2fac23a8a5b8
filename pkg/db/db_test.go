package db

import (
	"errors"
	"testing"
	"time"

	"github.com/brikx/coach/internal/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestDialect(t *testing.T) {
	for _, kind := range []string{TypePostgres, TypeMySQL, TypeSQLite, "Postgres"} {
		d, err := Dialect(Config{Type: kind, Host: "localhost", Port: "5432", Name: "coach"})
		assert.NoError(t, err, kind)
		assert.NotNil(t, d, kind)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Config{
		DBType:            "sqlite",
		DBPath:            "/tmp/coach.db",
		DBConnMaxLifetime: 300,
		DBConnMaxIdleTime: 60,
	})
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "/tmp/coach.db", cfg.Path)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, time.Minute, cfg.ConnMaxIdleTime)
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: api_keys.key_hash")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}
