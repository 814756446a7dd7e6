package queue

import (
	"context"

	"threadcast/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, job domain.ThreadJob) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, job domain.ThreadJob) error) error
	Close() error
}
