package thread

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"threadcast/internal/domain"
	"threadcast/internal/metrics"
	"threadcast/internal/poster"
)

// PartialError reports a thread that stopped before its last post. Posts in
// Posted stay published; nothing is rolled back.
type PartialError struct {
	Platform domain.Platform
	Posted   []domain.PostReference
	Index    int
	Total    int
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: thread aborted at post %d of %d (%d already published): %v",
		e.Platform, e.Index+1, e.Total, len(e.Posted), e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

type Event struct {
	Platform domain.Platform
	Index    int
	Total    int
	Ref      domain.PostReference
	Delay    time.Duration
	Err      error
}

type Observer func(Event)

type Composer struct {
	logger   zerolog.Logger
	sample   Sampler
	sleep    Sleeper
	observer Observer
}

type Option func(*Composer)

func WithSampler(s Sampler) Option {
	return func(c *Composer) { c.sample = s }
}

func WithSleeper(s Sleeper) Option {
	return func(c *Composer) { c.sleep = s }
}

func WithObserver(o Observer) Option {
	return func(c *Composer) { c.observer = o }
}

func NewComposer(logger zerolog.Logger, opts ...Option) *Composer {
	c := &Composer{
		logger: logger.With().Str("component", "thread").Logger(),
		sample: UniformDelay,
		sleep:  SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostThread publishes fragments as a reply chain with the default composer.
func PostThread(ctx context.Context, p poster.Provider, fragments []domain.PostContent, minDelayMs, maxDelayMs int) ([]domain.PostReference, error) {
	plan := domain.ThreadPlan{Fragments: fragments, Delay: domain.DelayRangeMs(minDelayMs, maxDelayMs)}
	return NewComposer(zerolog.Nop()).Post(ctx, p, plan)
}

// Post publishes plan.Fragments in order. The first fragment is a root post
// and every later one replies to the post published just before it. Posts
// are strictly sequential, separated by a delay sampled from plan.Delay.
//
// The run is not transactional: on failure the references already published
// are returned inside a *PartialError and remain on the platform.
func (c *Composer) Post(ctx context.Context, p poster.Provider, plan domain.ThreadPlan) ([]domain.PostReference, error) {
	total := len(plan.Fragments)
	if total == 0 {
		return nil, nil
	}
	if err := plan.Delay.Validate(); err != nil {
		return nil, err
	}

	platform := p.Platform()
	log := c.logger.With().Str("platform", string(platform)).Int("total", total).Logger()
	start := time.Now()
	defer func() {
		metrics.ThreadDuration.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())
	}()

	refs := make([]domain.PostReference, 0, total)

	fail := func(i int, err error) ([]domain.PostReference, error) {
		log.Error().Err(err).Int("index", i).Int("published", len(refs)).Msg("thread aborted")
		metrics.PostFailures.WithLabelValues(string(platform), failureReason(err)).Inc()
		outcome := "partial"
		if len(refs) == 0 {
			outcome = "failed"
		}
		metrics.ThreadsCompleted.WithLabelValues(string(platform), outcome).Inc()
		c.notify(Event{Platform: platform, Index: i, Total: total, Err: err})
		return refs, &PartialError{Platform: platform, Posted: refs, Index: i, Total: total, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(0, err)
	}

	anchor, err := p.PostRoot(ctx, plan.Fragments[0])
	if err != nil {
		return fail(0, err)
	}
	refs = append(refs, anchor)
	metrics.PostsPublished.WithLabelValues(string(platform), "root").Inc()
	log.Debug().Int("index", 0).Str("ref", anchor.String()).Msg("root posted")
	c.notify(Event{Platform: platform, Index: 0, Total: total, Ref: anchor})

	for i := 1; i < total; i++ {
		delay := c.sample(plan.Delay)
		metrics.InterPostDelay.Observe(delay.Seconds())

		if err := c.sleep(ctx, delay); err != nil {
			return fail(i, err)
		}
		if err := ctx.Err(); err != nil {
			return fail(i, err)
		}

		anchor, err = p.PostReply(ctx, plan.Fragments[i], anchor)
		if err != nil {
			return fail(i, err)
		}
		refs = append(refs, anchor)
		metrics.PostsPublished.WithLabelValues(string(platform), "reply").Inc()
		log.Debug().Int("index", i).Str("ref", anchor.String()).Dur("delay", delay).Msg("reply posted")
		c.notify(Event{Platform: platform, Index: i, Total: total, Ref: anchor, Delay: delay})
	}

	metrics.ThreadsCompleted.WithLabelValues(string(platform), "complete").Inc()
	log.Info().Str("root", refs[0].String()).Msg("thread posted")

	return refs, nil
}

func (c *Composer) notify(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}

func failureReason(err error) string {
	var (
		authErr    *poster.AuthError
		publishErr *poster.PublishError
		nsErr      *poster.NotSupportedError
	)
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &publishErr):
		return "publish"
	case errors.As(err, &nsErr):
		return "not_supported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
