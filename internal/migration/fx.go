package migration

import (
	"github.com/smallbiznis/mercado/internal/config"
	"github.com/smallbiznis/mercado/internal/dues/repository"
	"github.com/smallbiznis/mercado/internal/seed"
	"github.com/smallbiznis/mercado/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module prepares the local dues schema and optionally seeds demo stands.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, dbCfg db.Config, log *zap.Logger) error {
		if dbCfg.Type == db.TypePostgres {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			version, err := RunMigrations(sqlDB, log)
			if err != nil {
				return err
			}
			log.Info("dues schema ready", zap.Uint("version", version))
		} else {
			log.Info("auto-migrating schema", zap.String("type", dbCfg.Type))
			if err := repository.AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.SeedDemoStands {
			return seed.EnsureDemoStands(conn, log)
		}
		return nil
	}),
)
