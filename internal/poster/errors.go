package poster

import (
	"fmt"

	"threadcast/internal/domain"
)

// AuthError reports a failed session negotiation. The post attempt that
// triggered it is abandoned.
type AuthError struct {
	Platform   domain.Platform
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: authentication failed: status %d: %s", e.Platform, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: authentication failed: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// PublishError reports a publish call that did not yield a usable reference.
// Body holds the raw response body when one was received.
type PublishError struct {
	Platform   domain.Platform
	StatusCode int
	Body       string
	Err        error
}

func (e *PublishError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: publish failed: status %d: %v: %s", e.Platform, e.StatusCode, e.Err, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: publish failed: status %d: %s", e.Platform, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: publish failed: %v", e.Platform, e.Err)
	}
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

type NotSupportedError struct {
	Platform domain.Platform
	Op       string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: %s is not supported", e.Platform, e.Op)
}
