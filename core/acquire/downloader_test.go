package acquire

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"vibecast/model"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Artist - Title", "Artist - Title"},
		{"path separators", "AC/DC - Back\\In Black", "AC_DC - Back_In Black"},
		{"unsafe characters", "F*ck: <Buttons>?", "Fck Buttons"},
		{"keeps dots dashes underscores", "a-b_c.d", "a-b_c.d"},
		{"truncated", strings.Repeat("a", 150), strings.Repeat("a", 100)},
		{"truncated on rune boundary", strings.Repeat("あ", 40), strings.Repeat("あ", 33)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeLabel(tt.in)
			if got != tt.want {
				t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("SanitizeLabel(%q) produced invalid UTF-8", tt.in)
			}
		})
	}
}

func TestStorageKey(t *testing.T) {
	track := &model.Track{ID: 42, Artist: "Artist", Title: "Song/Name"}
	want := "tracks/42/Artist - Song_Name.mp3"
	if got := StorageKey(track); got != want {
		t.Errorf("StorageKey() = %q, want %q", got, want)
	}
}

// trackStateRecorder implements the repository surface the downloader uses.
type trackStateRecorder struct {
	downloaded     bool
	downloadFailed bool
	bucket, key    string
	path           string
	markErr        error
}

func (r *trackStateRecorder) CreateTrack(*model.Track) (int64, error)       { return 0, nil }
func (r *trackStateRecorder) GetTrackByID(int64) (*model.Track, error)      { return nil, nil }
func (r *trackStateRecorder) ListTracks([]model.TrackStatus) ([]*model.Track, error) {
	return nil, nil
}
func (r *trackStateRecorder) FindDue(time.Time, time.Duration, int, bool) ([]*model.Track, error) {
	return nil, nil
}
func (r *trackStateRecorder) MarkQueued(int64) error            { return nil }
func (r *trackStateRecorder) MarkFailed(int64, string) error    { return nil }
func (r *trackStateRecorder) RequeueFailed(int64) error         { return nil }
func (r *trackStateRecorder) MarkDownloadFailed(int64) error {
	r.downloadFailed = true
	return nil
}
func (r *trackStateRecorder) MarkDownloaded(id int64, bucket, key, path string) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.downloaded = true
	r.bucket, r.key, r.path = bucket, key, path
	return nil
}

// memUploader collects uploaded objects.
type memUploader struct {
	objects map[string][]byte
	err     error
}

func (u *memUploader) Bucket() string { return "vibe-songs" }
func (u *memUploader) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if u.err != nil {
		return u.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if u.objects == nil {
		u.objects = make(map[string][]byte)
	}
	u.objects[key] = data
	return nil
}

type bytesAcquirer struct {
	data []byte
	err  error
}

func (a *bytesAcquirer) Acquire(ctx context.Context, track *model.Track) ([]byte, error) {
	return a.data, a.err
}

func TestAcquireAndStoreSuccess(t *testing.T) {
	recorder := &trackStateRecorder{}
	uploader := &memUploader{}
	d := NewDownloader(&bytesAcquirer{data: []byte("mp3")}, uploader, recorder)

	track := &model.Track{ID: 7, Artist: "A", Title: "B"}
	if err := d.AcquireAndStore(context.Background(), track); err != nil {
		t.Fatalf("AcquireAndStore() error: %v", err)
	}

	wantKey := "tracks/7/A - B.mp3"
	if string(uploader.objects[wantKey]) != "mp3" {
		t.Errorf("uploaded objects = %v", uploader.objects)
	}
	if !recorder.downloaded {
		t.Fatal("locator was not persisted")
	}
	if recorder.path != "s3://vibe-songs/"+wantKey {
		t.Errorf("persisted path = %q", recorder.path)
	}
	if track.S3Key != wantKey || track.DownloadState != model.DownloadCompleted {
		t.Errorf("in-memory track not updated: key=%q state=%q", track.S3Key, track.DownloadState)
	}
}

func TestAcquireAndStoreNoSource(t *testing.T) {
	recorder := &trackStateRecorder{}
	d := NewDownloader(NewStubAcquirer(), &memUploader{}, recorder)

	track := &model.Track{ID: 1, Artist: "A", Title: "B"}
	err := d.AcquireAndStore(context.Background(), track)
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("error = %v, want ErrNoSource", err)
	}
	if !recorder.downloadFailed {
		t.Error("download_state=failed was not recorded")
	}
	if recorder.downloaded {
		t.Error("a partial locator was persisted")
	}
	if track.DownloadState != model.DownloadFailed {
		t.Errorf("track download state = %q, want failed", track.DownloadState)
	}
}

func TestAcquireAndStoreUploadFailure(t *testing.T) {
	recorder := &trackStateRecorder{}
	uploader := &memUploader{err: errors.New("connection reset")}
	d := NewDownloader(&bytesAcquirer{data: []byte("mp3")}, uploader, recorder)

	track := &model.Track{ID: 1, Artist: "A", Title: "B"}
	err := d.AcquireAndStore(context.Background(), track)
	if err == nil || !strings.Contains(err.Error(), "upload failed") {
		t.Fatalf("error = %v, want upload failure", err)
	}
	if !recorder.downloadFailed || recorder.downloaded {
		t.Errorf("recorder state: failed=%v downloaded=%v", recorder.downloadFailed, recorder.downloaded)
	}
}

func TestHTTPAcquirerWithoutSourceURL(t *testing.T) {
	a := NewHTTPAcquirer()
	_, err := a.Acquire(context.Background(), &model.Track{ID: 1, Artist: "A", Title: "B"})
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("error = %v, want ErrNoSource", err)
	}
}
