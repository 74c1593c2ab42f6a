package telegram

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned when the session cannot be (re)authorized.
// Callers should record the failure and retry on a later poll instead of
// retrying silently.
var ErrUnavailable = errors.New("telegram session unavailable")

// RateLimitedError signals a flood-wait style rejection from the backend.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by telegram, retry after %s", e.RetryAfter)
}

// ForbiddenError signals the session may not write to the destination.
type ForbiddenError struct {
	Description string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("telegram forbade the request: %s", e.Description)
}

// UnreachableError signals a transport-level failure before the backend
// produced an answer.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("telegram unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}
