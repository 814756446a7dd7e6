package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadcast/internal/api"
	"threadcast/internal/config"
	"threadcast/internal/content"
	"threadcast/internal/logging"
	"threadcast/internal/poster"
	"threadcast/internal/queue"
	"threadcast/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "console")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	var feeds api.FeedStore
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(cfg.Redis.Addr)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		feeds = rdb
	}

	var publisher queue.Publisher
	if len(cfg.Queue.Brokers) > 0 {
		k, err := queue.NewKafka(cfg.Queue.Brokers, cfg.Queue.Topic)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create queue")
		}
		defer k.Close()
		publisher = k
	}

	source := content.NewNexusAI(cfg.Content.URL, cfg.Content.APIKey)
	server := api.NewServer(cfg.Thread, poster.NewRegistryFromConfig(cfg), publisher, source, feeds, logger)

	go func() {
		logger.Info().Str("addr", cfg.Server.Port).Msg("server starting")
		if err := server.Start(cfg.Server.Port); err != nil {
			logger.Info().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}
