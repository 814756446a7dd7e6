package poster

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"threadcast/internal/domain"
)

const DefaultXEndpoint = "https://api.twitter.com/2/tweets"

var errMissingTweetID = errors.New("response has no data.id")

// X posts tweets with a static bearer token.
type X struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewX(apiKey, endpoint string) *X {
	if endpoint == "" {
		endpoint = DefaultXEndpoint
	}
	return &X{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   newHTTPClient(),
	}
}

var _ Provider = (*X)(nil)

func (x *X) Platform() domain.Platform {
	return domain.PlatformX
}

func (x *X) PostRoot(ctx context.Context, content domain.PostContent) (domain.PostReference, error) {
	return x.tweet(ctx, content, map[string]any{
		"text": content.Text(),
	})
}

func (x *X) PostReply(ctx context.Context, content domain.PostContent, parent domain.PostReference) (domain.PostReference, error) {
	return x.tweet(ctx, content, map[string]any{
		"text": content.Text(),
		"reply": map[string]string{
			"in_reply_to_tweet_id": parent.String(),
		},
	})
}

func (x *X) tweet(ctx context.Context, content domain.PostContent, payload map[string]any) (domain.PostReference, error) {
	if content.IsZero() {
		return "", &PublishError{Platform: domain.PlatformX, Err: domain.ErrEmptyContent}
	}

	status, body, err := postJSON(ctx, x.client, x.endpoint, x.apiKey, payload)
	if err != nil {
		return "", &PublishError{Platform: domain.PlatformX, StatusCode: status, Body: string(body), Err: err}
	}

	if !isSuccess(status) {
		return "", &PublishError{Platform: domain.PlatformX, StatusCode: status, Body: string(body)}
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &PublishError{Platform: domain.PlatformX, StatusCode: status, Body: string(body), Err: err}
	}
	if resp.Data.ID == "" {
		return "", &PublishError{Platform: domain.PlatformX, StatusCode: status, Body: string(body), Err: errMissingTweetID}
	}

	return domain.PostReference(resp.Data.ID), nil
}
