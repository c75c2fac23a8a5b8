package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	apikeydomain "github.com/brikx/coach/internal/apikey/domain"
	auditdomain "github.com/brikx/coach/internal/audit/domain"
	billingdomain "github.com/brikx/coach/internal/billing/domain"
	mealplandomain "github.com/brikx/coach/internal/mealplan/domain"
	phasedomain "github.com/brikx/coach/internal/phase/domain"
	projectdomain "github.com/brikx/coach/internal/project/domain"
	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres schema.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

// Models lists every persisted model, parents first.
func Models() []any {
	return []any{
		&apikeydomain.User{},
		&apikeydomain.APIKey{},
		&phasedomain.Phase{},
		&projectdomain.Project{},
		&projectdomain.ProjectPhase{},
		&timeentrydomain.TimeEntry{},
		&billingdomain.AllocationRun{},
		&mealplandomain.Recipe{},
		&mealplandomain.RecipeIngredient{},
		&mealplandomain.MealPlanEntry{},
		&mealplandomain.ManualItem{},
		&mealplandomain.CheckedItem{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema on mysql and sqlite, which the SQL files do not target.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
