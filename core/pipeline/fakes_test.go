package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"vibecast/core/telegram"
	"vibecast/model"
)

// fakeTrackStore is an in-memory TrackRepository honoring the same
// selection and transition semantics as the MySQL implementation.
type fakeTrackStore struct {
	mu      sync.Mutex
	tracks  map[int64]*model.Track
	nextID  int64
	findErr error
}

func newFakeTrackStore() *fakeTrackStore {
	return &fakeTrackStore{tracks: make(map[int64]*model.Track), nextID: 1}
}

func (s *fakeTrackStore) add(track *model.Track) *model.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if track.ID == 0 {
		track.ID = s.nextID
		s.nextID++
	} else if track.ID >= s.nextID {
		s.nextID = track.ID + 1
	}
	if track.Status == "" {
		track.Status = model.StatusNew
	}
	s.tracks[track.ID] = track
	return track
}

func (s *fakeTrackStore) CreateTrack(track *model.Track) (int64, error) {
	return s.add(track).ID, nil
}

func (s *fakeTrackStore) GetTrackByID(id int64) (*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks[id], nil
}

func (s *fakeTrackStore) ListTracks(statuses []model.TrackStatus) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Track, 0)
	for _, track := range s.tracks {
		if len(statuses) == 0 {
			out = append(out, track)
			continue
		}
		for _, status := range statuses {
			if track.Status == status {
				out = append(out, track)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeTrackStore) FindDue(from time.Time, window time.Duration, limit int, requireDownloaded bool) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	until := from.Add(window)
	out := make([]*model.Track, 0)
	for _, track := range s.tracks {
		if track.Status != model.StatusNew {
			continue
		}
		if track.ScheduledAt.Before(from) || !track.ScheduledAt.Before(until) {
			continue
		}
		if requireDownloaded && track.DownloadState != model.DownloadCompleted {
			continue
		}
		out = append(out, track)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeTrackStore) MarkQueued(trackID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, ok := s.tracks[trackID]
	if !ok {
		return fmt.Errorf("track %d not found", trackID)
	}
	if track.Status != model.StatusNew && track.Status != model.StatusDownloaded {
		return fmt.Errorf("track %d not in a queueable state", trackID)
	}
	track.Status = model.StatusQueued
	return nil
}

func (s *fakeTrackStore) MarkFailed(trackID int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, ok := s.tracks[trackID]
	if !ok {
		return fmt.Errorf("track %d not found", trackID)
	}
	if track.Status == model.StatusSent {
		return fmt.Errorf("track %d is already sent", trackID)
	}
	track.Status = model.StatusFailed
	track.Errors = append(track.Errors, reason)
	return nil
}

func (s *fakeTrackStore) MarkDownloaded(trackID int64, bucket, key, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, ok := s.tracks[trackID]
	if !ok {
		return fmt.Errorf("track %d not found", trackID)
	}
	track.Status = model.StatusDownloaded
	track.DownloadState = model.DownloadCompleted
	track.S3Bucket, track.S3Key, track.S3Path = bucket, key, path
	return nil
}

func (s *fakeTrackStore) MarkDownloadFailed(trackID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, ok := s.tracks[trackID]
	if !ok {
		return fmt.Errorf("track %d not found", trackID)
	}
	track.DownloadState = model.DownloadFailed
	return nil
}

func (s *fakeTrackStore) RequeueFailed(trackID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, ok := s.tracks[trackID]
	if !ok || track.Status != model.StatusFailed {
		return fmt.Errorf("track %d is not failed", trackID)
	}
	track.Status = model.StatusNew
	return nil
}

// fakePayloadStore serves payload bytes by key.
type fakePayloadStore struct {
	objects map[string][]byte
	err     error
}

func (s *fakePayloadStore) FetchAll(ctx context.Context, key string) (*bytes.Reader, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return bytes.NewReader(data), nil
}

// fakeAcquirer mimics the downloader's all-or-nothing contract.
type fakeAcquirer struct {
	store *fakeTrackStore
	data  []byte
	err   error
}

func (a *fakeAcquirer) AcquireAndStore(ctx context.Context, track *model.Track) error {
	if a.err != nil {
		_ = a.store.MarkDownloadFailed(track.ID)
		track.DownloadState = model.DownloadFailed
		return a.err
	}
	key := fmt.Sprintf("tracks/%d/fake.mp3", track.ID)
	path := "s3://bucket/" + key
	_ = a.store.MarkDownloaded(track.ID, "bucket", key, path)
	track.S3Bucket, track.S3Key, track.S3Path = "bucket", key, path
	track.DownloadState = model.DownloadCompleted
	return nil
}

var errAcquireRefused = errors.New("acquisition refused")

// scheduledCall records one accepted scheduling call.
type scheduledCall struct {
	kind     string // "message" or "file"
	text     string
	entities []telegram.Entity
	desc     telegram.FileDescriptor
	payload  []byte
	when     time.Time
}

// fakeSender accepts or rejects scheduling calls.
type fakeSender struct {
	calls      []scheduledCall
	messageErr error
	fileErr    error
}

func (s *fakeSender) ScheduleMessage(ctx context.Context, chatID int64, text string, entities []telegram.Entity, when time.Time) error {
	if s.messageErr != nil {
		return s.messageErr
	}
	s.calls = append(s.calls, scheduledCall{kind: "message", text: text, entities: entities, when: when})
	return nil
}

func (s *fakeSender) ScheduleFile(ctx context.Context, chatID int64, payload io.Reader, desc telegram.FileDescriptor, when time.Time) error {
	if s.fileErr != nil {
		return s.fileErr
	}
	data, err := io.ReadAll(payload)
	if err != nil {
		return err
	}
	s.calls = append(s.calls, scheduledCall{kind: "file", desc: desc, payload: data, when: when})
	return nil
}

// fakeDispatchLog records audit rows.
type fakeDispatchLog struct {
	rows []*model.DispatchRecord
	err  error
}

func (l *fakeDispatchLog) Record(trackID int64, payloadPath string, at time.Time) (*model.DispatchRecord, error) {
	if l.err != nil {
		return nil, l.err
	}
	rec := &model.DispatchRecord{ID: fmt.Sprintf("rec-%d", len(l.rows)+1), TrackID: trackID, PayloadPath: payloadPath, CreatedAt: at}
	l.rows = append(l.rows, rec)
	return rec, nil
}

func (l *fakeDispatchLog) ListByTrack(trackID int64) ([]*model.DispatchRecord, error) {
	out := make([]*model.DispatchRecord, 0)
	for _, rec := range l.rows {
		if rec.TrackID == trackID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeClaims denies the ids in the deny set.
type fakeClaims struct {
	deny map[int64]bool
}

func (c *fakeClaims) Claim(ctx context.Context, trackID int64) (bool, error) {
	return !c.deny[trackID], nil
}
