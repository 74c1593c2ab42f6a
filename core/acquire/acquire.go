package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"vibecast/model"
)

// ErrNoSource signals that no legal source could be found for a track. It is
// distinguishable from transport failures so callers can report "nothing to
// acquire" separately from "acquisition broke".
var ErrNoSource = errors.New("no legal source available for track")

// Acquirer obtains the raw audio bytes for a track from a legal source.
type Acquirer interface {
	Acquire(ctx context.Context, track *model.Track) ([]byte, error)
}

// StubAcquirer is the default: the legal-source lookup is not implemented
// upstream yet, so every acquisition fails with ErrNoSource.
type StubAcquirer struct{}

// NewStubAcquirer creates the stub.
func NewStubAcquirer() *StubAcquirer {
	return &StubAcquirer{}
}

// Acquire always reports that no source exists.
func (a *StubAcquirer) Acquire(ctx context.Context, track *model.Track) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", ErrNoSource, track.Label())
}

// HTTPAcquirer fetches the payload of tracks that carry a direct source URL.
// Tracks without one fall through to ErrNoSource.
type HTTPAcquirer struct {
	httpClient *http.Client
}

// NewHTTPAcquirer creates an HTTP acquirer.
func NewHTTPAcquirer() *HTTPAcquirer {
	return &HTTPAcquirer{
		httpClient: &http.Client{
			Timeout: time.Minute * 2,
		},
	}
}

// Acquire downloads the track's source URL into memory.
func (a *HTTPAcquirer) Acquire(ctx context.Context, track *model.Track) ([]byte, error) {
	if track.SourceURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, track.Label())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build source request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download source, status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read source body: %w", err)
	}
	return data, nil
}
