package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"threadcast/internal/config"
	"threadcast/internal/logging"
	"threadcast/internal/poster"
	"threadcast/internal/queue"
	"threadcast/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "console")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	consumer, err := queue.NewKafkaConsumer(cfg.Queue.Brokers, cfg.Queue.GroupID, cfg.Queue.Topic, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create consumer")
	}
	defer consumer.Close()

	providers := poster.NewRegistryFromConfig(cfg)

	w := worker.NewConsumer(consumer, providers, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := w.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("consumer stopped")
		}
	}()

	logger.Info().Msg("poster started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()
}
