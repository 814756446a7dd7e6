package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"threadcast/internal/config"
	"threadcast/internal/content"
	"threadcast/internal/feed"
	"threadcast/internal/logging"
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

	source := content.NewNexusAI(cfg.Content.URL, cfg.Content.APIKey)

	w, err := worker.NewScraper(feed.NewRSS(), source, publisher, rdb, rdb, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create scraper")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	logger.Info().Strs("feeds", cfg.Feed.URLs).Dur("interval", cfg.Feed.Interval).Msg("scraper started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()
}
