package content

import (
	"context"
	"fmt"

	"threadcast/internal/domain"
)

// Source turns a document into the ordered fragments of a thread.
type Source interface {
	Fragments(ctx context.Context, html string) ([]domain.PostContent, error)
}

// ContentSourceError means the source answered but produced nothing usable.
type ContentSourceError struct {
	Reason string
	Err    error
}

func (e *ContentSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("content source: %s: %v", e.Reason, e.Err)
	}
	return "content source: " + e.Reason
}

func (e *ContentSourceError) Unwrap() error {
	return e.Err
}
