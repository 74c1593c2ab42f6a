package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"vibecast/model"
)

// PayloadStore reads whole payloads from object storage. Implemented by
// storage.ObjectStore.
type PayloadStore interface {
	FetchAll(ctx context.Context, key string) (*bytes.Reader, error)
}

// PayloadAcquirer runs the acquire-and-upload step for tracks without a
// locator. Implemented by acquire.Downloader.
type PayloadAcquirer interface {
	AcquireAndStore(ctx context.Context, track *model.Track) error
}

// Resolver produces a seekable in-memory byte stream for a track's audio
// payload. Tracks that already carry a storage locator are fetched directly;
// the rest go through the acquire-and-upload step first.
type Resolver struct {
	store      PayloadStore
	downloader PayloadAcquirer
}

// NewResolver creates a Resolver.
func NewResolver(store PayloadStore, downloader PayloadAcquirer) *Resolver {
	return &Resolver{store: store, downloader: downloader}
}

// Resolve returns the payload rewound to the start. All failure modes
// surface as a single PayloadUnavailableError carrying the cause.
func (r *Resolver) Resolve(ctx context.Context, track *model.Track) (*bytes.Reader, error) {
	if !track.HasLocator() {
		if err := r.downloader.AcquireAndStore(ctx, track); err != nil {
			return nil, &PayloadUnavailableError{Err: err}
		}
		// AcquireAndStore persists the locator before returning, so a
		// missing key here means the acquisition step misbehaved.
		if !track.HasLocator() {
			return nil, &PayloadUnavailableError{Err: fmt.Errorf("no payload path recorded for track %d", track.ID)}
		}
	}

	payload, err := r.store.FetchAll(ctx, track.S3Key)
	if err != nil {
		return nil, &PayloadUnavailableError{Err: err}
	}
	return payload, nil
}
