package poster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"threadcast/internal/domain"
)

const (
	DefaultBlueskyHost = "https://bsky.social"

	postCollection = "app.bsky.feed.post"
	atDatetime     = "2006-01-02T15:04:05.000Z"
)

var (
	errMissingAccessJwt = errors.New("session response has no accessJwt")
	errMissingURI       = errors.New("response has no uri")
)

type BlueskyReplyMode string

const (
	// ReplyDisabled rejects PostReply with a NotSupportedError.
	ReplyDisabled BlueskyReplyMode = "disabled"

	// ReplyCollapsed writes replies with root and parent both set to the
	// immediate parent, using the parent URI for the cid as well. Real
	// AT-protocol threads keep the first post as root and need the record
	// CID, so deeper chains produced this way are not rendered as one thread
	// by bsky clients.
	ReplyCollapsed BlueskyReplyMode = "collapsed"
)

type BlueskyConfig struct {
	Host      string
	Handle    string
	Password  string
	Repo      string
	ReplyMode BlueskyReplyMode
}

// Bluesky creates app.bsky.feed.post records over XRPC. A session is
// negotiated on the first post and reused for the lifetime of the value.
type Bluesky struct {
	host      string
	handle    string
	password  string
	repo      string
	replyMode BlueskyReplyMode
	client    *http.Client
	now       func() time.Time

	mu      sync.Mutex
	session *blueskySession
}

type blueskySession struct {
	accessJwt string
	did       string
}

func NewBluesky(cfg BlueskyConfig) *Bluesky {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		host = DefaultBlueskyHost
	}
	mode := cfg.ReplyMode
	if mode == "" {
		mode = ReplyDisabled
	}
	return &Bluesky{
		host:      host,
		handle:    cfg.Handle,
		password:  cfg.Password,
		repo:      cfg.Repo,
		replyMode: mode,
		client:    newHTTPClient(),
		now:       time.Now,
	}
}

var _ Provider = (*Bluesky)(nil)

func (b *Bluesky) Platform() domain.Platform {
	return domain.PlatformBluesky
}

func (b *Bluesky) PostRoot(ctx context.Context, content domain.PostContent) (domain.PostReference, error) {
	return b.createPost(ctx, content, nil)
}

func (b *Bluesky) PostReply(ctx context.Context, content domain.PostContent, parent domain.PostReference) (domain.PostReference, error) {
	if b.replyMode != ReplyCollapsed {
		return "", &NotSupportedError{Platform: domain.PlatformBluesky, Op: "reply"}
	}

	ref := strongRef{Cid: parent.String(), URI: parent.String()}
	return b.createPost(ctx, content, &replyRef{Root: ref, Parent: ref})
}

type strongRef struct {
	Cid string `json:"cid"`
	URI string `json:"uri"`
}

type replyRef struct {
	Root   strongRef `json:"root"`
	Parent strongRef `json:"parent"`
}

type feedPost struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt"`
	Reply     *replyRef `json:"reply,omitempty"`
}

func (b *Bluesky) createPost(ctx context.Context, content domain.PostContent, reply *replyRef) (domain.PostReference, error) {
	if content.IsZero() {
		return "", &PublishError{Platform: domain.PlatformBluesky, Err: domain.ErrEmptyContent}
	}

	sess, err := b.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	repo := b.repo
	if repo == "" {
		repo = sess.did
	}

	payload := map[string]any{
		"collection": postCollection,
		"repo":       repo,
		"record": feedPost{
			Type:      postCollection,
			Text:      content.Text(),
			CreatedAt: b.now().UTC().Format(atDatetime),
			Reply:     reply,
		},
	}

	status, body, err := postJSON(ctx, b.client, b.xrpcURL("com.atproto.repo.createRecord"), sess.accessJwt, payload)
	if err != nil {
		return "", &PublishError{Platform: domain.PlatformBluesky, StatusCode: status, Body: string(body), Err: err}
	}
	if !isSuccess(status) {
		return "", &PublishError{Platform: domain.PlatformBluesky, StatusCode: status, Body: string(body)}
	}

	var resp struct {
		URI string `json:"uri"`
		Cid string `json:"cid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &PublishError{Platform: domain.PlatformBluesky, StatusCode: status, Body: string(body), Err: err}
	}
	if resp.URI == "" {
		return "", &PublishError{Platform: domain.PlatformBluesky, StatusCode: status, Body: string(body), Err: errMissingURI}
	}

	return domain.PostReference(resp.URI), nil
}

// ensureSession logs in once. The lock is held across the login call so
// concurrent first posts share a single session.
func (b *Bluesky) ensureSession(ctx context.Context) (*blueskySession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil {
		return b.session, nil
	}

	status, body, err := postJSON(ctx, b.client, b.xrpcURL("com.atproto.server.createSession"), "", map[string]string{
		"identifier": b.handle,
		"password":   b.password,
	})
	if err != nil {
		return nil, &AuthError{Platform: domain.PlatformBluesky, Err: err}
	}
	if !isSuccess(status) {
		return nil, &AuthError{Platform: domain.PlatformBluesky, StatusCode: status, Body: string(body)}
	}

	var resp struct {
		AccessJwt string `json:"accessJwt"`
		Did       string `json:"did"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &AuthError{Platform: domain.PlatformBluesky, Err: fmt.Errorf("decode session: %w", err)}
	}
	if resp.AccessJwt == "" {
		return nil, &AuthError{Platform: domain.PlatformBluesky, Err: errMissingAccessJwt}
	}

	b.session = &blueskySession{accessJwt: resp.AccessJwt, did: resp.Did}
	return b.session, nil
}

func (b *Bluesky) xrpcURL(method string) string {
	return b.host + "/xrpc/" + method
}
