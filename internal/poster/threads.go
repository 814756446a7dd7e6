package poster

import (
	"context"

	"threadcast/internal/domain"
)

// Threads is a placeholder for Meta's Threads API. Every operation fails
// with a NotSupportedError.
type Threads struct{}

func NewThreads() *Threads {
	return &Threads{}
}

var _ Provider = (*Threads)(nil)

func (t *Threads) Platform() domain.Platform {
	return domain.PlatformThreads
}

func (t *Threads) PostRoot(ctx context.Context, content domain.PostContent) (domain.PostReference, error) {
	return "", &NotSupportedError{Platform: domain.PlatformThreads, Op: "post"}
}

func (t *Threads) PostReply(ctx context.Context, content domain.PostContent, parent domain.PostReference) (domain.PostReference, error) {
	return "", &NotSupportedError{Platform: domain.PlatformThreads, Op: "reply"}
}
