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
	"threadcast/internal/feed"
	"threadcast/internal/logging"
	"threadcast/internal/poster"
	"threadcast/internal/queue"
	"threadcast/internal/redis"
	"threadcast/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "console")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	rdb, err := redis.New(cfg.Redis.Addr)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	publisher, err := queue.NewKafka(cfg.Queue.Brokers, cfg.Queue.Topic)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create queue")
	}
	defer publisher.Close()

	consumer, err := queue.NewKafkaConsumer(cfg.Queue.Brokers, cfg.Queue.GroupID, cfg.Queue.Topic, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create consumer")
	}
	defer consumer.Close()

	providers := poster.NewRegistryFromConfig(cfg)
	source := content.NewNexusAI(cfg.Content.URL, cfg.Content.APIKey)

	server := api.NewServer(cfg.Thread, providers, publisher, source, rdb, logger)

	w := worker.NewConsumer(consumer, providers, server, logger)

	scraper, err := worker.NewScraper(feed.NewRSS(), source, publisher, rdb, rdb, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create scraper")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := w.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("consumer stopped")
		}
	}()

	go scraper.Start(ctx)

	go func() {
		logger.Info().Str("addr", cfg.Server.Port).Msg("server starting")
		if err := server.Start(cfg.Server.Port); err != nil {
			logger.Info().Err(err).Msg("server stopped")
		}
	}()

	logger.Info().Strs("platforms", platformNames(providers)).Msg("app started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}

func platformNames(r *poster.Registry) []string {
	var out []string
	for _, p := range r.Platforms() {
		out = append(out, string(p))
	}
	return out
}
