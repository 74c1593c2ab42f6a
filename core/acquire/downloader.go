package acquire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"vibecast/logger"
	"vibecast/model"
	"vibecast/repository"
)

// maxLabelLength caps the sanitized "artist - title" portion of a storage key.
const maxLabelLength = 100

// SanitizeLabel strips path separators and anything outside a safe character
// set from a display label, then truncates it on a rune boundary so the
// result is always valid UTF-8.
func SanitizeLabel(label string) string {
	label = strings.ReplaceAll(label, "/", "_")
	label = strings.ReplaceAll(label, "\\", "_")

	var b strings.Builder
	for _, c := range label {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || strings.ContainsRune(" -_.", c) {
			b.WriteRune(c)
		}
	}

	safe := b.String()
	for len(safe) > maxLabelLength {
		_, size := utf8.DecodeLastRuneInString(safe)
		safe = safe[:len(safe)-size]
	}
	return safe
}

// StorageKey builds the collision-resistant object key for a track: the
// track id keeps keys unique, the sanitized label keeps them readable.
func StorageKey(track *model.Track) string {
	return fmt.Sprintf("tracks/%d/%s.mp3", track.ID, SanitizeLabel(track.Label()))
}

// Uploader is the slice of the object store the downloader needs.
// Implemented by storage.ObjectStore.
type Uploader interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Bucket() string
}

// Downloader runs the acquire-and-upload step: pull bytes from the legal
// source, upload them to object storage, and persist the locator.
type Downloader struct {
	acquirer Acquirer
	store    Uploader
	tracks   repository.TrackRepository
}

// NewDownloader creates a downloader.
func NewDownloader(acquirer Acquirer, store Uploader, tracks repository.TrackRepository) *Downloader {
	return &Downloader{acquirer: acquirer, store: store, tracks: tracks}
}

// AcquireAndStore is all-or-nothing: either the payload is uploaded and the
// locator plus completion marker land on the track, or download_state is set
// to failed and the error is returned. A partial locator is never persisted.
func (d *Downloader) AcquireAndStore(ctx context.Context, track *model.Track) error {
	key := StorageKey(track)

	data, err := d.acquirer.Acquire(ctx, track)
	if err != nil {
		return d.fail(track, fmt.Errorf("acquisition failed: %w", err))
	}

	if err := d.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "audio/mpeg"); err != nil {
		return d.fail(track, fmt.Errorf("upload failed: %w", err))
	}

	bucket := d.store.Bucket()
	path := fmt.Sprintf("s3://%s/%s", bucket, key)
	if err := d.tracks.MarkDownloaded(track.ID, bucket, key, path); err != nil {
		return d.fail(track, fmt.Errorf("failed to record locator: %w", err))
	}

	// Keep the in-memory copy coherent with what was just persisted.
	track.S3Bucket = bucket
	track.S3Key = key
	track.S3Path = path
	track.Status = model.StatusDownloaded
	track.DownloadState = model.DownloadCompleted

	logger.Info("Track payload acquired and stored",
		logger.Int64("trackId", track.ID),
		logger.String("key", key),
		logger.Int("size", len(data)))
	return nil
}

// fail records the download failure and re-raises the cause. Only the
// download marker is written here; the status transition and error append
// belong to the pipeline's failure path.
func (d *Downloader) fail(track *model.Track, cause error) error {
	if err := d.tracks.MarkDownloadFailed(track.ID); err != nil {
		logger.Error("Failed to record download failure",
			logger.Int64("trackId", track.ID),
			logger.ErrorField(err))
	}
	track.DownloadState = model.DownloadFailed
	return cause
}
