package feed

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

type RSS struct {
	client *http.Client
	parser *gofeed.Parser
	now    func() time.Time
}

func NewRSS() *RSS {
	return &RSS{
		client: &http.Client{Timeout: 15 * time.Second},
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

var _ Fetcher = (*RSS)(nil)

func (r *RSS) Fetch(ctx context.Context, url string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "threadcast/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(f.Items))
	for _, it := range f.Items {
		published := r.now()
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		}

		raw := it.Content
		if raw == "" {
			raw = it.Description
		}
		html, err := CleanHTML(raw)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", it.Title, err)
		}

		guid := it.GUID
		if guid == "" {
			guid = it.Link
		}

		items = append(items, Item{
			ID:        generateID(guid),
			GUID:      guid,
			Title:     it.Title,
			Link:      it.Link,
			HTML:      html,
			Published: published,
		})
	}

	return items, nil
}

// CleanHTML drops scripts, styles and embeds and returns the body markup.
func CleanHTML(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, iframe, svg").Remove()

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func generateID(guid string) string {
	hash := md5.Sum([]byte(guid))
	return fmt.Sprintf("%x", hash)[:12]
}
