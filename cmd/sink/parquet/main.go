package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rexbrahh/lp-vault/logger"
	"github.com/rexbrahh/lp-vault/sinks/parquet"
)

func main() {
	_ = godotenv.Load()
	log := logger.InitializeFromEnv().With().Str("service", "sink-parquet").Logger()

	cfg, err := parquet.ServiceConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := parquet.NewService(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init service")
	}

	log.Info().Msg("sink started")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("service run failed")
	}
	log.Info().Msg("shutdown complete")
}
