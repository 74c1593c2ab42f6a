package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"vibecast/model"
)

type pipelineFixture struct {
	store    *fakeTrackStore
	payloads *fakePayloadStore
	acquirer *fakeAcquirer
	sender   *fakeSender
	log      *fakeDispatchLog
	orch     *Orchestrator
}

func newPipelineFixture(claims ClaimStore) *pipelineFixture {
	store := newFakeTrackStore()
	payloads := &fakePayloadStore{objects: make(map[string][]byte)}
	acquirer := &fakeAcquirer{store: store}
	sender := &fakeSender{}
	log := &fakeDispatchLog{}

	orch := NewOrchestrator(
		NewSelector(store),
		NewResolver(payloads, acquirer),
		NewFormatter(nil, 1, 2),
		sender,
		store,
		log,
		claims,
		nil,
		-100123,
	)
	return &pipelineFixture{store: store, payloads: payloads, acquirer: acquirer, sender: sender, log: log, orch: orch}
}

// Scenario: downloaded track with a valid locator and an accepting backend
// ends queued with one audit row.
func TestRunHappyPath(t *testing.T) {
	fx := newPipelineFixture(nil)
	now := time.Now().UTC()

	track := trackAt(2, now.Add(2*time.Hour))
	track.DownloadState = model.DownloadCompleted
	track.S3Bucket, track.S3Key = "bucket", "key"
	track.S3Path = "s3://bucket/key"
	fx.store.add(track)
	fx.payloads.objects["key"] = []byte("audio-bytes")

	result, err := fx.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.OK || result.Processed != 1 {
		t.Fatalf("Run() = %+v, want ok with 1 processed", result)
	}

	got, _ := fx.store.GetTrackByID(2)
	if got.Status != model.StatusQueued {
		t.Errorf("status = %q, want queued", got.Status)
	}
	if len(got.Errors) != 0 {
		t.Errorf("errors = %v, want none", got.Errors)
	}

	if len(fx.log.rows) != 1 {
		t.Fatalf("dispatch records = %d, want 1", len(fx.log.rows))
	}
	if fx.log.rows[0].TrackID != 2 || fx.log.rows[0].PayloadPath != "s3://bucket/key" {
		t.Errorf("dispatch record = %+v", fx.log.rows[0])
	}

	if len(fx.sender.calls) != 2 {
		t.Fatalf("scheduling calls = %d, want 2", len(fx.sender.calls))
	}
	msg, file := fx.sender.calls[0], fx.sender.calls[1]
	if msg.kind != "message" || file.kind != "file" {
		t.Fatalf("call order = %s, %s", msg.kind, file.kind)
	}
	if !msg.when.Equal(track.ScheduledAt) {
		t.Errorf("message scheduled at %v, want %v", msg.when, track.ScheduledAt)
	}
	if got := file.when.Sub(msg.when); got != time.Minute {
		t.Errorf("file offset = %v, want exactly 60s", got)
	}
	if string(file.payload) != "audio-bytes" {
		t.Errorf("file payload = %q", file.payload)
	}
}

// Scenario: no acquisition source available. The resolver raises payload
// unavailable; the track ends failed with exactly one error and a failed
// download marker.
func TestRunNoSource(t *testing.T) {
	fx := newPipelineFixture(nil)
	fx.acquirer.err = fmt.Errorf("acquisition failed: %w", errAcquireRefused)
	now := time.Now().UTC()

	fx.store.add(trackAt(1, now.Add(time.Hour)))

	result, err := fx.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.OK || result.Processed != 1 {
		t.Fatalf("Run() = %+v, want ok with 1 processed", result)
	}

	got, _ := fx.store.GetTrackByID(1)
	if got.Status != model.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.DownloadState != model.DownloadFailed {
		t.Errorf("download state = %q, want failed", got.DownloadState)
	}
	if len(got.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one entry", got.Errors)
	}
	if len(fx.sender.calls) != 0 {
		t.Errorf("no scheduling call should have been made, got %d", len(fx.sender.calls))
	}
	if len(fx.log.rows) != 0 {
		t.Errorf("no dispatch record should exist, got %d", len(fx.log.rows))
	}
}

// Scenario: 12 eligible tracks with the default cap. Exactly 10 are
// processed in schedule order; the remaining 2 stay new and untouched.
func TestRunBatchCap(t *testing.T) {
	fx := newPipelineFixture(nil)
	now := time.Now().UTC()

	for i := int64(1); i <= 12; i++ {
		track := trackAt(i, now.Add(time.Duration(i)*time.Minute))
		track.DownloadState = model.DownloadCompleted
		track.S3Key = fmt.Sprintf("key-%d", i)
		track.S3Path = "s3://bucket/" + track.S3Key
		fx.store.add(track)
		fx.payloads.objects[track.S3Key] = []byte("x")
	}

	result, err := fx.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Processed != 10 {
		t.Fatalf("processed = %d, want 10", result.Processed)
	}

	for i := int64(1); i <= 10; i++ {
		got, _ := fx.store.GetTrackByID(i)
		if got.Status != model.StatusQueued {
			t.Errorf("track %d status = %q, want queued", i, got.Status)
		}
	}
	for i := int64(11); i <= 12; i++ {
		got, _ := fx.store.GetTrackByID(i)
		if got.Status != model.StatusNew {
			t.Errorf("track %d status = %q, want new (untouched)", i, got.Status)
		}
		if len(got.Errors) != 0 {
			t.Errorf("track %d errors = %v, want none", i, got.Errors)
		}
	}
}

// One bad track never aborts the batch, and the summary still reports every
// attempted track.
func TestRunIsolatesPerTrackFailures(t *testing.T) {
	fx := newPipelineFixture(nil)
	now := time.Now().UTC()

	bad := trackAt(1, now.Add(time.Hour))
	bad.DownloadState = model.DownloadCompleted
	bad.S3Key = "missing-key"
	fx.store.add(bad)

	good := trackAt(2, now.Add(2*time.Hour))
	good.DownloadState = model.DownloadCompleted
	good.S3Key = "good-key"
	good.S3Path = "s3://bucket/good-key"
	fx.store.add(good)
	fx.payloads.objects["good-key"] = []byte("x")

	result, err := fx.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.OK || result.Processed != 2 {
		t.Fatalf("Run() = %+v, want ok with 2 processed", result)
	}

	gotBad, _ := fx.store.GetTrackByID(1)
	if gotBad.Status != model.StatusFailed || len(gotBad.Errors) != 1 {
		t.Errorf("bad track = %q with errors %v", gotBad.Status, gotBad.Errors)
	}
	gotGood, _ := fx.store.GetTrackByID(2)
	if gotGood.Status != model.StatusQueued {
		t.Errorf("good track = %q, want queued", gotGood.Status)
	}
}

func TestRunSelectionFailureFailsTheRun(t *testing.T) {
	fx := newPipelineFixture(nil)
	fx.store.findErr = errors.New("store unreachable")

	_, err := fx.orch.Run(context.Background())
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("Run() error = %v, want SelectionError", err)
	}
}

// A delivery rejection after the message call routes the track to the
// failure path with a DeliveryError reason.
func TestRunDeliveryFailure(t *testing.T) {
	fx := newPipelineFixture(nil)
	fx.sender.fileErr = errors.New("flood wait")
	now := time.Now().UTC()

	track := trackAt(1, now.Add(time.Hour))
	track.DownloadState = model.DownloadCompleted
	track.S3Key = "key"
	fx.store.add(track)
	fx.payloads.objects["key"] = []byte("x")

	if _, err := fx.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got, _ := fx.store.GetTrackByID(1)
	if got.Status != model.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if len(got.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one entry", got.Errors)
	}
}

// A track claimed by an overlapping invocation is skipped untouched and not
// counted as attempted.
func TestRunClaimSkip(t *testing.T) {
	fx := newPipelineFixture(&fakeClaims{deny: map[int64]bool{1: true}})
	now := time.Now().UTC()

	claimed := trackAt(1, now.Add(time.Hour))
	claimed.DownloadState = model.DownloadCompleted
	claimed.S3Key = "key-1"
	fx.store.add(claimed)

	free := trackAt(2, now.Add(2*time.Hour))
	free.DownloadState = model.DownloadCompleted
	free.S3Key = "key-2"
	fx.store.add(free)
	fx.payloads.objects["key-2"] = []byte("x")

	result, err := fx.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("processed = %d, want 1", result.Processed)
	}

	got, _ := fx.store.GetTrackByID(1)
	if got.Status != model.StatusNew {
		t.Errorf("claimed track status = %q, want new", got.Status)
	}
}

func TestResolverRoundTrip(t *testing.T) {
	payloads := &fakePayloadStore{objects: map[string][]byte{"key": []byte("stored-bytes")}}
	resolver := NewResolver(payloads, &fakeAcquirer{store: newFakeTrackStore()})

	track := trackAt(1, time.Now())
	track.S3Key = "key"

	payload, err := resolver.Resolve(context.Background(), track)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	data, _ := io.ReadAll(payload)
	if !bytes.Equal(data, []byte("stored-bytes")) {
		t.Errorf("payload = %q, want the stored bytes", data)
	}
}

func TestResolverAcquiresWhenNoLocator(t *testing.T) {
	store := newFakeTrackStore()
	acquirer := &fakeAcquirer{store: store}
	track := store.add(trackAt(1, time.Now()))

	payloads := &fakePayloadStore{objects: map[string][]byte{
		"tracks/1/fake.mp3": []byte("acquired"),
	}}
	resolver := NewResolver(payloads, acquirer)

	payload, err := resolver.Resolve(context.Background(), track)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	data, _ := io.ReadAll(payload)
	if string(data) != "acquired" {
		t.Errorf("payload = %q", data)
	}
	if track.Status != model.StatusDownloaded || track.DownloadState != model.DownloadCompleted {
		t.Errorf("track state = %q/%q after acquisition", track.Status, track.DownloadState)
	}
}

func TestResolverWrapsFetchFailure(t *testing.T) {
	payloads := &fakePayloadStore{objects: map[string][]byte{}}
	resolver := NewResolver(payloads, &fakeAcquirer{store: newFakeTrackStore()})

	track := trackAt(1, time.Now())
	track.S3Key = "gone"

	_, err := resolver.Resolve(context.Background(), track)
	var unavailable *PayloadUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Resolve() error = %v, want PayloadUnavailableError", err)
	}
}

func TestMarkFailedLeavesSentTracksAlone(t *testing.T) {
	store := newFakeTrackStore()
	track := store.add(&model.Track{Artist: "A", Title: "B", Status: model.StatusSent})

	if err := store.MarkFailed(track.ID, "late failure"); err == nil {
		t.Fatal("MarkFailed on a sent track did not error")
	}
	if track.Status != model.StatusSent {
		t.Errorf("status = %q, want sent", track.Status)
	}
	if len(track.Errors) != 0 {
		t.Errorf("errors = %v, want none", track.Errors)
	}
}
