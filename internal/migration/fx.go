package migration

import (
	"strings"

	"github.com/brikx/coach/internal/seed"
	"github.com/brikx/coach/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
		log = log.Named("migration")

		if strings.EqualFold(strings.TrimSpace(cfg.Type), db.TypePostgres) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		if err := seed.EnsurePhases(conn); err != nil {
			return err
		}
		log.Info("schema ready", zap.String("type", cfg.Type))
		return nil
	}),
)
