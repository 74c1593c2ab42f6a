package model

import "time"

// TrackStatus is the dispatch lifecycle state of a track.
type TrackStatus string

const (
	StatusNew        TrackStatus = "new"
	StatusDownloaded TrackStatus = "downloaded"
	StatusQueued     TrackStatus = "queued"
	StatusSent       TrackStatus = "sent"
	StatusFailed     TrackStatus = "failed"
)

// IsTerminal reports whether the pipeline considers the status final.
// A failed track can be reset to new, but only by an out-of-band requeue.
func (s TrackStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// rank orders the forward path new → downloaded → queued → sent.
func (s TrackStatus) rank() int {
	switch s {
	case StatusNew:
		return 0
	case StatusDownloaded:
		return 1
	case StatusQueued:
		return 2
	case StatusSent:
		return 3
	}
	return -1
}

// CanTransition reports whether a status change is legal: forward along
// new → downloaded → queued → sent, or to failed from any non-terminal state.
func (s TrackStatus) CanTransition(to TrackStatus) bool {
	if to == StatusFailed {
		return !s.IsTerminal()
	}
	return s.rank() >= 0 && to.rank() > s.rank()
}

// DownloadState marks payload acquisition progress, decoupled from Status so
// acquisition and dispatch can be retried independently.
type DownloadState string

const (
	DownloadAbsent    DownloadState = ""
	DownloadCompleted DownloadState = "completed"
	DownloadFailed    DownloadState = "failed"
)

// Track is a schedulable unit of audio content.
type Track struct {
	ID               int64     `json:"id"`
	Artist           string    `json:"artist"`
	Title            string    `json:"title"`
	SpotifyLink      string    `json:"spotifyLink"`
	YoutubeMusicLink string    `json:"youtubeMusicLink"`
	SourceURL        string    `json:"sourceUrl,omitempty"` // optional direct audio source

	ScheduledAt time.Time `json:"scheduledAt"` // intended public delivery time

	// Object-storage locator, set once acquisition completes.
	S3Bucket string `json:"s3Bucket,omitempty"`
	S3Key    string `json:"s3Key,omitempty"`
	S3Path   string `json:"s3Path,omitempty"` // s3://bucket/key

	Status        TrackStatus   `json:"status"`
	DownloadState DownloadState `json:"downloadState"`
	Errors        []string      `json:"errors,omitempty"` // append-only, one entry per failed attempt

	DownloadedAt *time.Time `json:"downloadedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// HasLocator reports whether the track already carries a resolved
// object-storage locator.
func (t *Track) HasLocator() bool {
	return t.S3Key != ""
}

// Label is the human-readable "Artist - Title" form used in messages and
// file names.
func (t *Track) Label() string {
	return t.Artist + " - " + t.Title
}
