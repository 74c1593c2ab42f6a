package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vibecast/model"
)

// TrackRepository defines the interface for track data operations. It is the
// single authority for status transitions; nothing else writes track state.
type TrackRepository interface {
	CreateTrack(track *model.Track) (int64, error)
	GetTrackByID(id int64) (*model.Track, error)
	ListTracks(statuses []model.TrackStatus) ([]*model.Track, error)
	// FindDue returns up to limit tracks with status=new scheduled inside
	// [from, from+window), ordered by (scheduled_at, id) ascending.
	FindDue(from time.Time, window time.Duration, limit int, requireDownloaded bool) ([]*model.Track, error)
	MarkQueued(trackID int64) error
	MarkFailed(trackID int64, reason string) error
	MarkDownloaded(trackID int64, bucket, key, path string) error
	MarkDownloadFailed(trackID int64) error
	RequeueFailed(trackID int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(conn *sql.DB) TrackRepository {
	return &mysqlTrackRepository{DB: conn}
}

const trackColumns = `id, artist, title, spotify_link, youtube_music_link, source_url, scheduled_at,
	s3_bucket, s3_key, s3_path, status, download_state, errors, downloaded_at, created_at, updated_at`

// scanTrack scans one row into a Track. The errors column holds a JSON array
// of strings and may be NULL.
func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	var errorsJSON sql.NullString
	var downloadedAt sql.NullTime

	err := row.Scan(&track.ID, &track.Artist, &track.Title, &track.SpotifyLink,
		&track.YoutubeMusicLink, &track.SourceURL, &track.ScheduledAt,
		&track.S3Bucket, &track.S3Key, &track.S3Path, &track.Status,
		&track.DownloadState, &errorsJSON, &downloadedAt,
		&track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &track.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode errors column for track %d: %w", track.ID, err)
		}
	}
	if downloadedAt.Valid {
		track.DownloadedAt = &downloadedAt.Time
	}
	return track, nil
}

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (artist, title, spotify_link, youtube_music_link, source_url,
	           scheduled_at, status, download_state, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	status := track.Status
	if status == "" {
		status = model.StatusNew
	}

	now := time.Now()
	res, err := stmt.Exec(track.Artist, track.Title, track.SpotifyLink, track.YoutubeMusicLink,
		track.SourceURL, track.ScheduledAt, status, track.DownloadState, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	log.Printf("Track created with ID: %d, Label: %s", id, track.Label())
	return id, nil
}

// GetTrackByID retrieves a track by its ID. Returns nil when not found.
func (r *mysqlTrackRepository) GetTrackByID(id int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	track, err := scanTrack(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// ListTracks retrieves tracks filtered by status, newest schedule first.
// An empty status set returns everything.
func (r *mysqlTrackRepository) ListTracks(statuses []model.TrackStatus) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks`
	args := make([]interface{}, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (`
		for i, s := range statuses {
			if i > 0 {
				query += `, `
			}
			query += `?`
			args = append(args, string(s))
		}
		query += `)`
	}
	query += ` ORDER BY scheduled_at DESC, id DESC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in ListTracks: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListTracks: %w", err)
	}
	return tracks, nil
}

// FindDue selects the dispatch candidates for one pipeline run.
func (r *mysqlTrackRepository) FindDue(from time.Time, window time.Duration, limit int, requireDownloaded bool) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks
	           WHERE status = ? AND scheduled_at >= ? AND scheduled_at < ?`
	args := []interface{}{string(model.StatusNew), from, from.Add(window)}
	if requireDownloaded {
		query += ` AND download_state = ?`
		args = append(args, string(model.DownloadCompleted))
	}
	query += ` ORDER BY scheduled_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in FindDue: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in FindDue: %w", err)
	}
	return tracks, nil
}

// MarkQueued advances a track to queued after both scheduling calls were
// accepted. Guarded so a terminal track is never moved backward.
func (r *mysqlTrackRepository) MarkQueued(trackID int64) error {
	query := `UPDATE tracks SET status = ?, updated_at = ?
	           WHERE id = ? AND status IN (?, ?)`
	res, err := r.DB.Exec(query, string(model.StatusQueued), time.Now(), trackID,
		string(model.StatusNew), string(model.StatusDownloaded))
	if err != nil {
		return fmt.Errorf("failed to execute MarkQueued for track ID %d: %w", trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for MarkQueued: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("track %d not in a queueable state", trackID)
	}
	log.Printf("Track %d marked queued", trackID)
	return nil
}

// MarkFailed sets status=failed and appends exactly one reason to the
// append-only errors list. The append happens server-side so the history is
// never rewritten from a stale in-memory copy. Guarded against sent: failed
// is reachable from any non-terminal state only. An already-failed track
// stays failed and collects the new reason.
func (r *mysqlTrackRepository) MarkFailed(trackID int64, reason string) error {
	query := `UPDATE tracks
	           SET status = ?,
	               errors = JSON_ARRAY_APPEND(COALESCE(errors, JSON_ARRAY()), '$', ?),
	               updated_at = ?
	           WHERE id = ? AND status != ?`
	res, err := r.DB.Exec(query, string(model.StatusFailed), reason, time.Now(), trackID,
		string(model.StatusSent))
	if err != nil {
		return fmt.Errorf("failed to execute MarkFailed for track ID %d: %w", trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for MarkFailed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("track %d is already sent", trackID)
	}
	return nil
}

// MarkDownloaded records the object-storage locator and completion marker in
// one statement, so a partial locator is never visible.
func (r *mysqlTrackRepository) MarkDownloaded(trackID int64, bucket, key, path string) error {
	query := `UPDATE tracks
	           SET status = ?, download_state = ?, s3_bucket = ?, s3_key = ?, s3_path = ?,
	               downloaded_at = ?, updated_at = ?
	           WHERE id = ?`
	now := time.Now()
	if _, err := r.DB.Exec(query, string(model.StatusDownloaded), string(model.DownloadCompleted),
		bucket, key, path, now, now, trackID); err != nil {
		return fmt.Errorf("failed to execute MarkDownloaded for track ID %d: %w", trackID, err)
	}
	log.Printf("Track %d downloaded to %s", trackID, path)
	return nil
}

// MarkDownloadFailed flips download_state to failed. The status change and
// the error append happen once, at the orchestrator's failure boundary, so a
// failed acquisition yields exactly one new error entry.
func (r *mysqlTrackRepository) MarkDownloadFailed(trackID int64) error {
	query := `UPDATE tracks SET download_state = ?, updated_at = ? WHERE id = ?`
	if _, err := r.DB.Exec(query, string(model.DownloadFailed), time.Now(), trackID); err != nil {
		return fmt.Errorf("failed to execute MarkDownloadFailed for track ID %d: %w", trackID, err)
	}
	return nil
}

// RequeueFailed resets a failed track to new, keeping its error history.
// This is the out-of-band re-queue path; the pipeline itself never calls it.
func (r *mysqlTrackRepository) RequeueFailed(trackID int64) error {
	query := `UPDATE tracks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.DB.Exec(query, string(model.StatusNew), time.Now(), trackID, string(model.StatusFailed))
	if err != nil {
		return fmt.Errorf("failed to execute RequeueFailed for track ID %d: %w", trackID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for RequeueFailed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("track %d is not failed", trackID)
	}
	log.Printf("Track %d requeued", trackID)
	return nil
}
