package pipeline

import (
	"time"

	"vibecast/model"
	"vibecast/repository"
)

// Defaults for the candidate window and batch cap.
const (
	DefaultWindow   = 24 * time.Hour
	DefaultBatchCap = 10
)

// Selector picks the dispatch candidates for one run: tracks with status=new
// scheduled inside [T, T+window), ordered by (scheduled_at, id) ascending,
// capped at the batch limit. It has no side effects; re-running it before
// any status mutation returns the same set.
type Selector struct {
	tracks            repository.TrackRepository
	window            time.Duration
	limit             int
	requireDownloaded bool
}

// SelectorOption customizes a Selector.
type SelectorOption func(*Selector)

// WithWindow overrides the rolling selection window.
func WithWindow(window time.Duration) SelectorOption {
	return func(s *Selector) { s.window = window }
}

// WithBatchCap overrides the per-run candidate cap.
func WithBatchCap(limit int) SelectorOption {
	return func(s *Selector) { s.limit = limit }
}

// WithRequireDownloaded restricts candidates to tracks whose payload is
// already acquired, for deployments where acquisition runs out-of-band.
func WithRequireDownloaded() SelectorOption {
	return func(s *Selector) { s.requireDownloaded = true }
}

// NewSelector creates a Selector with the default window and cap.
func NewSelector(tracks repository.TrackRepository, opts ...SelectorOption) *Selector {
	s := &Selector{
		tracks: tracks,
		window: DefaultWindow,
		limit:  DefaultBatchCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Due returns the candidates for a run anchored at the reference time. An
// empty result is a normal outcome, not an error.
func (s *Selector) Due(at time.Time) ([]*model.Track, error) {
	return s.tracks.FindDue(at, s.window, s.limit, s.requireDownloaded)
}
