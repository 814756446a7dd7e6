package feed

import (
	"context"
	"time"
)

// Item is one article from a syndication feed.
type Item struct {
	ID        string
	GUID      string
	Title     string
	Link      string
	HTML      string
	Published time.Time
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]Item, error)
}
