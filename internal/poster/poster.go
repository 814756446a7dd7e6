package poster

import (
	"context"
	"sort"

	"threadcast/internal/config"
	"threadcast/internal/domain"
)

// Provider publishes posts on a single platform.
type Provider interface {
	Platform() domain.Platform
	PostRoot(ctx context.Context, content domain.PostContent) (domain.PostReference, error)
	PostReply(ctx context.Context, content domain.PostContent, parent domain.PostReference) (domain.PostReference, error)
}

type Registry struct {
	providers map[domain.Platform]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.Platform]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Platform()] = p
	}
	return r
}

// NewRegistryFromConfig registers every platform that has credentials
// configured. Threads is always present so that callers get a
// NotSupportedError instead of an unknown platform.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	var providers []Provider

	if cfg.X.APIKey != "" {
		providers = append(providers, NewX(cfg.X.APIKey, cfg.X.Endpoint))
	}

	if cfg.Bluesky.Handle != "" {
		providers = append(providers, NewBluesky(BlueskyConfig{
			Host:      cfg.Bluesky.Host,
			Handle:    cfg.Bluesky.Handle,
			Password:  cfg.Bluesky.Password,
			Repo:      cfg.Bluesky.Repo,
			ReplyMode: BlueskyReplyMode(cfg.Bluesky.ReplyMode),
		}))
	}

	providers = append(providers, NewThreads())

	return NewRegistry(providers...)
}

func (r *Registry) Get(platform domain.Platform) (Provider, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, &NotSupportedError{Platform: platform, Op: "configure"}
	}
	return p, nil
}

func (r *Registry) Platforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.providers))
	for p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
