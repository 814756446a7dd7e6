package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadcast/internal/config"
	"threadcast/internal/content"
	"threadcast/internal/domain"
	"threadcast/internal/feed"
	"threadcast/internal/poster"
	"threadcast/internal/thread"
)

type fakeFetcher struct {
	items map[string][]feed.Item
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]feed.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[url], nil
}

type fakeSource struct {
	calls int
	err   error
}

func (f *fakeSource) Fragments(ctx context.Context, html string) ([]domain.PostContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a, _ := domain.NewPostContent("summary of " + html)
	b, _ := domain.NewPostContent("more")
	return []domain.PostContent{a, b}, nil
}

type fakePublisher struct {
	jobs []domain.ThreadJob
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, job domain.ThreadJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type memSeen struct {
	seen map[string]bool
}

func (m *memSeen) IsSeen(ctx context.Context, id string) (bool, error) { return m.seen[id], nil }
func (m *memSeen) MarkSeen(ctx context.Context, id string) error {
	m.seen[id] = true
	return nil
}

type staticFeeds []string

func (s staticFeeds) GetFeeds(ctx context.Context) ([]string, error) { return s, nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Feed.URLs = []string{"https://a.example/rss"}
	cfg.Feed.Interval = time.Minute
	cfg.Feed.Platform = "bluesky"
	cfg.Thread.MinDelayMs = 100
	cfg.Thread.MaxDelayMs = 200
	return cfg
}

func TestScraperQueuesNewItemsOnce(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]feed.Item{
		"https://a.example/rss": {{ID: "1", HTML: "<p>one</p>", Link: "https://a.example/1"}},
		"https://b.example/rss": {{ID: "2", HTML: "<p>two</p>"}},
	}}
	src := &fakeSource{}
	pub := &fakePublisher{}
	seen := &memSeen{seen: map[string]bool{}}

	w, err := NewScraper(fetcher, src, pub, seen, staticFeeds{"https://b.example/rss", "https://a.example/rss"}, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	w.scrapeAll(context.Background())
	w.scrapeAll(context.Background())

	require.Len(t, pub.jobs, 2)
	assert.Equal(t, 2, src.calls)

	job := pub.jobs[0]
	assert.Equal(t, domain.PlatformBluesky, job.Platform)
	assert.Equal(t, []string{"summary of <p>one</p>", "more"}, job.Fragments)
	assert.Equal(t, 100, job.MinDelayMs)
	assert.Equal(t, 200, job.MaxDelayMs)
	assert.Equal(t, "https://a.example/1", job.SourceURL)
	assert.NotEmpty(t, job.ID)
	assert.True(t, seen.seen["1"])
	assert.True(t, seen.seen["2"])
}

func TestScraperContentErrorIsNotRetried(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]feed.Item{
		"https://a.example/rss": {{ID: "1"}},
	}}
	src := &fakeSource{err: &content.ContentSourceError{Reason: "no tweets in response"}}
	pub := &fakePublisher{}
	seen := &memSeen{seen: map[string]bool{}}

	w, err := NewScraper(fetcher, src, pub, seen, nil, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	w.scrapeAll(context.Background())
	w.scrapeAll(context.Background())

	assert.Empty(t, pub.jobs)
	assert.Equal(t, 1, src.calls)
}

func TestScraperPublishFailureRetriesNextTick(t *testing.T) {
	fetcher := &fakeFetcher{items: map[string][]feed.Item{
		"https://a.example/rss": {{ID: "1"}},
	}}
	src := &fakeSource{}
	pub := &fakePublisher{err: errors.New("broker down")}
	seen := &memSeen{seen: map[string]bool{}}

	w, err := NewScraper(fetcher, src, pub, seen, nil, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	w.scrapeAll(context.Background())
	assert.False(t, seen.seen["1"])

	pub.err = nil
	w.scrapeAll(context.Background())
	assert.Len(t, pub.jobs, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	got := truncate("héllo wörld", 2)
	assert.Equal(t, "hé...", got)
	assert.True(t, utf8.ValidString(truncate("日本語のタイトル", 4)))
	assert.Equal(t, "日本語の...", truncate("日本語のタイトル", 4))
}

func TestNewScraperRejectsUnknownPlatform(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.Platform = "myspace"
	_, err := NewScraper(&fakeFetcher{}, &fakeSource{}, &fakePublisher{}, &memSeen{}, nil, cfg, zerolog.Nop())
	assert.Error(t, err)
}

type recordingProvider struct {
	platform domain.Platform
	calls    []string
}

func (p *recordingProvider) Platform() domain.Platform { return p.platform }

func (p *recordingProvider) PostRoot(ctx context.Context, c domain.PostContent) (domain.PostReference, error) {
	p.calls = append(p.calls, "root:"+c.Text())
	return domain.PostReference(fmt.Sprintf("r%d", len(p.calls))), nil
}

func (p *recordingProvider) PostReply(ctx context.Context, c domain.PostContent, parent domain.PostReference) (domain.PostReference, error) {
	p.calls = append(p.calls, "reply:"+c.Text()+"->"+parent.String())
	return domain.PostReference(fmt.Sprintf("r%d", len(p.calls))), nil
}

type collectBroadcaster struct {
	mu   sync.Mutex
	msgs []ProgressEvent
}

func (c *collectBroadcaster) Broadcast(msg string) {
	var ev ProgressEvent
	_ = json.Unmarshal([]byte(msg), &ev)
	c.mu.Lock()
	c.msgs = append(c.msgs, ev)
	c.mu.Unlock()
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestConsumerHandleJob(t *testing.T) {
	p := &recordingProvider{platform: domain.PlatformX}
	b := &collectBroadcaster{}
	c := NewConsumer(nil, poster.NewRegistry(p), b, zerolog.Nop(), thread.WithSleeper(noSleep))

	err := c.HandleJob(context.Background(), domain.ThreadJob{
		ID:        "job-1",
		Platform:  domain.PlatformX,
		Fragments: []string{"A", "B", "C"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"root:A", "reply:B->r1", "reply:C->r2"}, p.calls)
	require.Len(t, b.msgs, 3)
	assert.Equal(t, "job-1", b.msgs[2].JobID)
	assert.Equal(t, "r3", b.msgs[2].Ref)
	assert.Equal(t, 3, b.msgs[2].Total)
}

func TestConsumerUnsupportedPlatformIsAcked(t *testing.T) {
	b := &collectBroadcaster{}
	c := NewConsumer(nil, poster.NewRegistry(poster.NewThreads()), b, zerolog.Nop(), thread.WithSleeper(noSleep))

	err := c.HandleJob(context.Background(), domain.ThreadJob{ID: "j", Platform: domain.PlatformBluesky, Fragments: []string{"A"}})
	assert.NoError(t, err)
	require.Len(t, b.msgs, 1)
	assert.Contains(t, b.msgs[0].Error, "not supported")

	err = c.HandleJob(context.Background(), domain.ThreadJob{ID: "k", Platform: domain.PlatformThreads, Fragments: []string{"A"}})
	assert.NoError(t, err)
	require.Len(t, b.msgs, 2)
	assert.Contains(t, b.msgs[1].Error, "threads: post is not supported")
}

func TestConsumerInvalidJob(t *testing.T) {
	p := &recordingProvider{platform: domain.PlatformX}
	c := NewConsumer(nil, poster.NewRegistry(p), nil, zerolog.Nop())

	err := c.HandleJob(context.Background(), domain.ThreadJob{ID: "j", Platform: domain.PlatformX, Fragments: []string{"A", ""}})
	assert.NoError(t, err)
	assert.Empty(t, p.calls)
}
