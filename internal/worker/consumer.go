package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"threadcast/internal/domain"
	"threadcast/internal/metrics"
	"threadcast/internal/poster"
	"threadcast/internal/queue"
	"threadcast/internal/thread"
)

type Broadcaster interface {
	Broadcast(msg string)
}

type ProviderLookup interface {
	Get(platform domain.Platform) (poster.Provider, error)
}

// Consumer takes thread jobs off the queue and posts them one at a time.
type Consumer struct {
	consumer    queue.Consumer
	providers   ProviderLookup
	broadcaster Broadcaster
	logger      zerolog.Logger
	opts        []thread.Option
}

func NewConsumer(c queue.Consumer, providers ProviderLookup, b Broadcaster, logger zerolog.Logger, opts ...thread.Option) *Consumer {
	return &Consumer{
		consumer:    c,
		providers:   providers,
		broadcaster: b,
		logger:      logger.With().Str("component", "consumer").Logger(),
		opts:        opts,
	}
}

func (w *Consumer) Start(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.HandleJob)
}

// ProgressEvent is the JSON payload broadcast for every post of a job.
type ProgressEvent struct {
	JobID    string `json:"job_id"`
	Platform string `json:"platform"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Ref      string `json:"ref,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HandleJob posts the job's thread. Thread failures are logged and the job
// is acknowledged: partially published threads are never re-posted.
func (w *Consumer) HandleJob(ctx context.Context, job domain.ThreadJob) error {
	log := w.logger.With().Str("job_id", job.ID).Str("platform", string(job.Platform)).Logger()
	log.Info().Int("posts", len(job.Fragments)).Msg("job received")
	metrics.JobsConsumed.WithLabelValues(string(job.Platform)).Inc()

	provider, err := w.providers.Get(job.Platform)
	if err != nil {
		log.Error().Err(err).Msg("no provider")
		w.broadcast(ProgressEvent{JobID: job.ID, Platform: string(job.Platform), Error: err.Error()})
		return nil
	}

	plan, err := job.Plan()
	if err != nil {
		log.Error().Err(err).Msg("invalid job")
		w.broadcast(ProgressEvent{JobID: job.ID, Platform: string(job.Platform), Error: err.Error()})
		return nil
	}

	opts := append([]thread.Option{thread.WithObserver(func(ev thread.Event) {
		pe := ProgressEvent{
			JobID:    job.ID,
			Platform: string(ev.Platform),
			Index:    ev.Index,
			Total:    ev.Total,
			Ref:      ev.Ref.String(),
		}
		if ev.Err != nil {
			pe.Error = ev.Err.Error()
		}
		w.broadcast(pe)
	})}, w.opts...)

	refs, err := thread.NewComposer(log, opts...).Post(ctx, provider, plan)
	if err != nil {
		log.Error().Err(err).Int("published", len(refs)).Msg("thread failed")
		return nil
	}

	log.Info().Int("published", len(refs)).Msg("job done")
	return nil
}

func (w *Consumer) broadcast(ev ProgressEvent) {
	if w.broadcaster == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	w.broadcaster.Broadcast(string(data))
}
