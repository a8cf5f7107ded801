package main

import (
	"context"
	"flag"
	"time"

	"filedrop/internal/pkg/logger"
	"filedrop/internal/platform/config"
	"filedrop/internal/platform/database"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("migration completed successfully")
}
