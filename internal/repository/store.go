// Package repository selects the configured local store backend.
package repository

import (
	"context"
	"fmt"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/repository/mongo"
	"github.com/Rrens/flora-expert/internal/repository/postgres"
	"github.com/Rrens/flora-expert/internal/repository/sqlstore"
	"github.com/rs/zerolog/log"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
)

// Open connects to the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StoreConfig) (domain.Store, error) {
	log.Info().Str("driver", cfg.Driver).Msg("Opening local store")

	switch cfg.Driver {
	case DriverSQLite, "":
		return sqlstore.OpenSQLite(ctx, cfg.SQLite, cfg.AutoMigrate)
	case DriverMySQL:
		return sqlstore.OpenMySQL(ctx, cfg.MySQL, cfg.AutoMigrate)
	case DriverPostgres:
		return postgres.NewDB(ctx, cfg.Postgres, cfg.AutoMigrate)
	case DriverMongo, "mongo":
		return mongo.Open(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// Migrate brings the schema of the configured backend up to date and closes
// the connection again. For MongoDB this creates the indexes.
func Migrate(ctx context.Context, cfg config.StoreConfig) error {
	cfg.AutoMigrate = true

	store, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	return store.Close()
}
