package main

import (
	"context"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/logger"
	"github.com/Rrens/flora-expert/internal/repository"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	closer, err := logger.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logger")
	}
	defer closer.Close()

	log.Info().Str("driver", cfg.Store.Driver).Msg("Migrating local store")

	if err := repository.Migrate(context.Background(), cfg.Store); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Msg("Store is up to date")
}
