package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"threadcast/internal/domain"
	"threadcast/internal/metrics"
)

const DefaultNexusAIURL = "http://localhost:5500/api/chat/"

// NexusAI asks a NexusGenAI chat endpoint to rewrite HTML as a tweet thread.
type NexusAI struct {
	url    string
	apiKey string
	client *http.Client
}

func NewNexusAI(url, apiKey string) *NexusAI {
	if url == "" {
		url = DefaultNexusAIURL
	}
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = 120 * time.Second
	return &NexusAI{
		url:    url,
		apiKey: apiKey,
		client: client,
	}
}

var _ Source = (*NexusAI)(nil)

type chatMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

func (n *NexusAI) Fragments(ctx context.Context, html string) ([]domain.PostContent, error) {
	prompt := fmt.Sprintf(`Convert the following HTML content into JSON. The JSON format must match:
{
  "tweets": [
    { "content": "..." },
    { "content": "..." }
  ]
}
The HTML content is:
"""%s"""`, html)

	reqBody := map[string]any{
		"promptName": "HTML-to-Tweets",
		"messages": []chatMessage{
			{Sender: "system", Content: "You are an AI that transforms HTML into a series of tweets in JSON format."},
			{Sender: "user", Content: prompt},
		},
		"forceJSON": true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.ContentRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ContentRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("content API error: %d", resp.StatusCode)
	}

	var apiResp struct {
		Messages []chatMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		metrics.ContentRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	var answer string
	for _, m := range apiResp.Messages {
		if m.Sender == "assistant" {
			answer = m.Content
			break
		}
	}
	if answer == "" {
		metrics.ContentRequests.WithLabelValues("empty").Inc()
		return nil, &ContentSourceError{Reason: "no assistant response"}
	}

	fragments, err := ParseTweets(answer)
	if err != nil {
		metrics.ContentRequests.WithLabelValues("empty").Inc()
		return nil, err
	}

	metrics.ContentRequests.WithLabelValues("ok").Inc()
	return fragments, nil
}

// ParseTweets decodes {"tweets":[{"content":...}]} and keeps the non-blank
// entries in order. Markdown code fences around the JSON are ignored.
func ParseTweets(raw string) ([]domain.PostContent, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var result struct {
		Tweets []struct {
			Content string `json:"content"`
		} `json:"tweets"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &ContentSourceError{Reason: "response is not tweet JSON", Err: err}
	}

	fragments := make([]domain.PostContent, 0, len(result.Tweets))
	for _, t := range result.Tweets {
		c, err := domain.NewPostContent(t.Content)
		if err != nil {
			continue
		}
		fragments = append(fragments, c)
	}

	if len(fragments) == 0 {
		return nil, &ContentSourceError{Reason: "no tweets in response"}
	}

	return fragments, nil
}
