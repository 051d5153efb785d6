package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"feedplanner/internal/bootstrap"
	"feedplanner/internal/feeds"
	"feedplanner/internal/infra"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	pipeline, err := bootstrap.NewPipeline(ctx, cfg, runner, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to wire pipeline")
	}

	worker := feeds.NewWorker(pipeline.Feeds, pipeline.Service, cfg.WorkerPollInterval, logger)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
