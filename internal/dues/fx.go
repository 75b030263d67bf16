package dues

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mercado/internal/config"
	"github.com/smallbiznis/mercado/internal/dues/backend"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/dues/repository"
	"github.com/smallbiznis/mercado/internal/dues/service"
	"github.com/smallbiznis/mercado/internal/migration"
	"github.com/smallbiznis/mercado/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("dues.service",
	fx.Provide(NewSnowflakeNode),
	fx.Provide(service.New),
)

// Storage wires the authoritative store selected by DUES_STORE. The database
// and its migrations are only started when dues live locally.
func Storage(cfg config.Config) fx.Option {
	if cfg.UsesBackend() {
		return fx.Module("dues.store.backend",
			fx.Provide(NewBackendStore),
		)
	}
	return fx.Options(
		db.Module,
		migration.Module,
		fx.Module("dues.store.database",
			fx.Provide(NewDatabaseStore),
		),
	)
}

func NewSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

func NewDatabaseStore(conn *gorm.DB, genID *snowflake.Node) domain.Store {
	return repository.New(conn, genID)
}

func NewBackendStore(cfg config.Config, log *zap.Logger) (domain.Store, error) {
	return backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
	}, log)
}
