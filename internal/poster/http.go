package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const maxResponseBody = 1 << 20

// newHTTPClient returns a pooled client without retry logic; failed
// publishes are surfaced to the caller instead of being repeated.
func newHTTPClient() *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = 15 * time.Second
	return client
}

// postJSON sends payload as a JSON body and returns the status code and the
// raw response body.
func postJSON(ctx context.Context, client *http.Client, url, bearer string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, raw, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
