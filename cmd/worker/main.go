package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filedrop/internal/engine/profiles"
	"filedrop/internal/pkg/logger"
	"filedrop/internal/platform/config"
	"filedrop/internal/platform/database"
	"filedrop/internal/platform/repositories"
	"filedrop/internal/workers"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const reconcileTimeout = 30 * time.Minute

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to config file")
	runOnce    = flag.Bool("run-once", false, "Reconcile counters once and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	reconciler := profiles.NewService(
		repositories.NewProfileRepository(db),
		repositories.NewInboxRepository(db),
		nil,
	)

	if *runOnce {
		if err := workers.ReconcileCounters(context.Background(), reconciler, reconcileTimeout); err != nil {
			log.Fatal().Err(err).Msg("reconciliation failed")
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Worker.ReconcileSchedule, func() {
		_ = workers.ReconcileCounters(context.Background(), reconciler, reconcileTimeout)
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Worker.ReconcileSchedule).Msg("failed to schedule reconciliation")
	}

	c.Start()
	log.Info().Str("schedule", cfg.Worker.ReconcileSchedule).Msg("filedrop worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down worker")
	<-c.Stop().Done()
	log.Info().Msg("worker stopped")
}
