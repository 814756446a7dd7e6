package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <item>
    <title>First</title>
    <link>https://example.com/1</link>
    <guid>https://example.com/1</guid>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    <description><![CDATA[<p>Hello <b>world</b></p><script>alert(1)</script>]]></description>
  </item>
  <item>
    <title>Second</title>
    <link>https://example.com/2</link>
    <description>plain text</description>
  </item>
</channel>
</rss>`

func TestRSSFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	items, err := NewRSS().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "First", items[0].Title)
	assert.Equal(t, "<p>Hello <b>world</b></p>", items[0].HTML)
	assert.Equal(t, 2006, items[0].Published.Year())
	assert.Len(t, items[0].ID, 12)

	// no guid, falls back to link
	assert.Equal(t, "https://example.com/2", items[1].GUID)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestRSSFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRSS().Fetch(context.Background(), srv.URL)
	assert.EqualError(t, err, "HTTP 503")
}

func TestCleanHTML(t *testing.T) {
	out, err := CleanHTML(`<div><style>p{}</style><p>keep</p><iframe src="x"></iframe></div>`)
	require.NoError(t, err)
	assert.Equal(t, "<div><p>keep</p></div>", out)
}
