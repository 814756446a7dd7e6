package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(t *testing.T, raw string) []string {
	t.Helper()
	fragments, err := ParseTweets(raw)
	require.NoError(t, err)
	out := make([]string, len(fragments))
	for i, f := range fragments {
		out[i] = f.Text()
	}
	return out
}

func TestParseTweets(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, texts(t, `{"tweets":[{"content":"one"},{"content":"two"}]}`))
	assert.Equal(t, []string{"fenced"}, texts(t, "```json\n{\"tweets\":[{\"content\":\"fenced\"}]}\n```"))
	assert.Equal(t, []string{"a", "c"}, texts(t, `{"tweets":[{"content":"a"},{"content":"  "},{"content":"c"}]}`))
}

func TestParseTweetsUnusable(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"tweets":[]}`,
		`{"tweets":[{"content":""}]}`,
		`{}`,
	} {
		_, err := ParseTweets(raw)
		var cse *ContentSourceError
		assert.True(t, errors.As(err, &cse), raw)
	}
}

func TestNexusAIFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer nexus-key", r.Header.Get("Authorization"))

		var in struct {
			PromptName string        `json:"promptName"`
			Messages   []chatMessage `json:"messages"`
			ForceJSON  bool          `json:"forceJSON"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "HTML-to-Tweets", in.PromptName)
		assert.True(t, in.ForceJSON)
		require.Len(t, in.Messages, 2)
		assert.Contains(t, in.Messages[1].Content, "<p>hello</p>")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []chatMessage{
				{Sender: "user", Content: "ignored"},
				{Sender: "assistant", Content: `{"tweets":[{"content":"first"},{"content":"second"}]}`},
			},
		})
	}))
	defer srv.Close()

	fragments, err := NewNexusAI(srv.URL, "nexus-key").Fragments(context.Background(), "<p>hello</p>")
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, "first", fragments[0].Text())
	assert.Equal(t, "second", fragments[1].Text())
}

func TestNexusAINoAssistantMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[{"sender":"user","content":"x"}]}`))
	}))
	defer srv.Close()

	_, err := NewNexusAI(srv.URL, "").Fragments(context.Background(), "<p></p>")
	var cse *ContentSourceError
	assert.True(t, errors.As(err, &cse))
}

func TestNexusAIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewNexusAI(srv.URL, "").Fragments(context.Background(), "<p></p>")
	require.Error(t, err)
	var cse *ContentSourceError
	assert.False(t, errors.As(err, &cse))
}
