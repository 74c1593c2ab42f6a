package pipeline

import "fmt"

// The pipeline's error taxonomy. Selection errors fail the whole run; the
// other three are per-track and are absorbed at the orchestrator boundary.

// SelectionError means the track store could not be queried. Fatal to the
// invocation.
type SelectionError struct {
	Err error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("candidate selection failed: %v", e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// PayloadUnavailableError means the track's audio bytes could not be
// produced: no source found, acquisition failed, upload failed, or the
// locator was missing after acquisition. Recoverable by a later poll.
type PayloadUnavailableError struct {
	Err error
}

func (e *PayloadUnavailableError) Error() string {
	return fmt.Sprintf("payload unavailable: %v", e.Err)
}

func (e *PayloadUnavailableError) Unwrap() error {
	return e.Err
}

// FormattingError means the track's metadata could not be turned into a
// dispatch. Likely persistent; worth investigating rather than retrying.
type FormattingError struct {
	Err error
}

func (e *FormattingError) Error() string {
	return fmt.Sprintf("dispatch formatting failed: %v", e.Err)
}

func (e *FormattingError) Unwrap() error {
	return e.Err
}

// DeliveryError means the messaging backend rejected or never received a
// scheduling call. Recoverable by a later poll.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
