package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	feedsKey = "threadcast:feeds"
	seenKey  = "threadcast:seen"
)

type Client struct {
	rdb *redis.Client
}

func New(addr string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Feed subscriptions added at runtime, polled alongside the configured ones.
func (c *Client) AddFeed(ctx context.Context, url string) error {
	return c.rdb.SAdd(ctx, feedsKey, url).Err()
}

func (c *Client) RemoveFeed(ctx context.Context, url string) error {
	return c.rdb.SRem(ctx, feedsKey, url).Err()
}

func (c *Client) GetFeeds(ctx context.Context) ([]string, error) {
	return c.rdb.SMembers(ctx, feedsKey).Result()
}

func (c *Client) FeedExists(ctx context.Context, url string) (bool, error) {
	return c.rdb.SIsMember(ctx, feedsKey, url).Result()
}

// Feed items already turned into a thread job.
func (c *Client) IsSeen(ctx context.Context, itemID string) (bool, error) {
	return c.rdb.SIsMember(ctx, seenKey, itemID).Result()
}

func (c *Client) MarkSeen(ctx context.Context, itemID string) error {
	return c.rdb.SAdd(ctx, seenKey, itemID).Err()
}
