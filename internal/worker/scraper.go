package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"threadcast/internal/config"
	"threadcast/internal/content"
	"threadcast/internal/domain"
	"threadcast/internal/feed"
	"threadcast/internal/metrics"
	"threadcast/internal/queue"
)

type SeenStore interface {
	IsSeen(ctx context.Context, itemID string) (bool, error)
	MarkSeen(ctx context.Context, itemID string) error
}

// FeedLister returns feed URLs registered at runtime.
type FeedLister interface {
	GetFeeds(ctx context.Context) ([]string, error)
}

// Scraper polls feeds on an interval, turns new items into thread jobs and
// queues them.
type Scraper struct {
	fetcher   feed.Fetcher
	source    content.Source
	publisher queue.Publisher
	seen      SeenStore
	feeds     FeedLister
	logger    zerolog.Logger

	urls     []string
	interval time.Duration
	platform domain.Platform
	minDelay int
	maxDelay int
	now      func() time.Time
}

func NewScraper(f feed.Fetcher, s content.Source, p queue.Publisher, seen SeenStore, feeds FeedLister, cfg *config.Config, logger zerolog.Logger) (*Scraper, error) {
	platform, err := domain.ParsePlatform(cfg.Feed.Platform)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		fetcher:   f,
		source:    s,
		publisher: p,
		seen:      seen,
		feeds:     feeds,
		logger:    logger.With().Str("component", "scraper").Logger(),
		urls:      cfg.Feed.URLs,
		interval:  cfg.Feed.Interval,
		platform:  platform,
		minDelay:  cfg.Thread.MinDelayMs,
		maxDelay:  cfg.Thread.MaxDelayMs,
		now:       time.Now,
	}, nil
}

func (w *Scraper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scrapeAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scrapeAll(ctx)
		}
	}
}

func (w *Scraper) feedURLs(ctx context.Context) []string {
	urls := append([]string(nil), w.urls...)
	if w.feeds == nil {
		return urls
	}

	extra, err := w.feeds.GetFeeds(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("list runtime feeds")
		return urls
	}

	known := make(map[string]bool, len(urls))
	for _, u := range urls {
		known[u] = true
	}
	for _, u := range extra {
		if !known[u] {
			urls = append(urls, u)
			known[u] = true
		}
	}
	return urls
}

func (w *Scraper) scrapeAll(ctx context.Context) {
	for _, url := range w.feedURLs(ctx) {
		log := w.logger.With().Str("feed", url).Logger()

		items, err := w.fetcher.Fetch(ctx, url)
		if err != nil {
			log.Error().Err(err).Msg("fetch feed")
			continue
		}

		queued, dups := 0, 0
		for _, item := range items {
			ok, err := w.processItem(ctx, item)
			if err != nil {
				metrics.FeedItems.WithLabelValues("error").Inc()
				log.Error().Err(err).Str("item", item.ID).Str("title", truncate(item.Title, 60)).Msg("process item")
				continue
			}
			if !ok {
				metrics.FeedItems.WithLabelValues("duplicate").Inc()
				dups++
				continue
			}
			metrics.FeedItems.WithLabelValues("queued").Inc()
			queued++
		}

		log.Info().Int("fetched", len(items)).Int("queued", queued).Int("duplicates", dups).Msg("feed scraped")
	}
}

// processItem reports false for items that were already handled.
func (w *Scraper) processItem(ctx context.Context, item feed.Item) (bool, error) {
	seen, err := w.seen.IsSeen(ctx, item.ID)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	fragments, err := w.source.Fragments(ctx, item.HTML)
	if err != nil {
		var cse *content.ContentSourceError
		if errors.As(err, &cse) {
			// not retried on the next tick
			if markErr := w.seen.MarkSeen(ctx, item.ID); markErr != nil {
				w.logger.Warn().Err(markErr).Str("item", item.ID).Msg("mark seen")
			}
		}
		return false, err
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text()
	}

	job := domain.ThreadJob{
		ID:         uuid.NewString(),
		Platform:   w.platform,
		Fragments:  texts,
		MinDelayMs: w.minDelay,
		MaxDelayMs: w.maxDelay,
		SourceURL:  item.Link,
		CreatedAt:  w.now(),
	}

	if err := w.publisher.Publish(ctx, job); err != nil {
		return false, err
	}

	if err := w.seen.MarkSeen(ctx, item.ID); err != nil {
		return false, err
	}

	w.logger.Info().Str("job_id", job.ID).Int("posts", len(texts)).Str("title", truncate(item.Title, 60)).Msg("thread queued")
	return true, nil
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
