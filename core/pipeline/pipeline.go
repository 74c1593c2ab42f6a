package pipeline

import (
	"context"
	"io"
	"time"

	"vibecast/core/events"
	"vibecast/core/telegram"
	"vibecast/logger"
	"vibecast/metrics"
	"vibecast/model"
	"vibecast/repository"
)

// Sender is the outbound delivery channel. Implemented by telegram.Client.
type Sender interface {
	ScheduleMessage(ctx context.Context, chatID int64, text string, entities []telegram.Entity, when time.Time) error
	ScheduleFile(ctx context.Context, chatID int64, payload io.Reader, desc telegram.FileDescriptor, when time.Time) error
}

// Result is the invocation summary handed back to the trigger. Per-track
// failures are visible only in the store; one bad track never fails the
// batch.
type Result struct {
	OK        bool `json:"ok"`
	Processed int  `json:"processed"`
}

// Orchestrator runs one dispatch cycle: select candidates, then for each one
// resolve the payload, format the two-phase send, deliver it, and commit the
// lifecycle transition. Tracks are processed strictly sequentially because
// the scheduling side effect is externally visible and not idempotent.
type Orchestrator struct {
	selector   *Selector
	resolver   *Resolver
	formatter  *Formatter
	sender     Sender
	tracks     repository.TrackRepository
	dispatches repository.DispatchRepository
	claims     ClaimStore  // optional
	hub        *events.Hub // optional
	chatID     int64

	now func() time.Time
}

// NewOrchestrator wires the pipeline. claims and hub may be nil.
func NewOrchestrator(
	selector *Selector,
	resolver *Resolver,
	formatter *Formatter,
	sender Sender,
	tracks repository.TrackRepository,
	dispatches repository.DispatchRepository,
	claims ClaimStore,
	hub *events.Hub,
	chatID int64,
) *Orchestrator {
	return &Orchestrator{
		selector:   selector,
		resolver:   resolver,
		formatter:  formatter,
		sender:     sender,
		tracks:     tracks,
		dispatches: dispatches,
		claims:     claims,
		hub:        hub,
		chatID:     chatID,
		now:        time.Now,
	}
}

// Run executes one polling cycle. Selection failure fails the run; every
// per-track error is converted into a markFailed call and processing moves
// on to the next candidate.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	start := o.now().UTC()
	o.publish(events.Event{Type: events.TypeRunStarted})

	candidates, err := o.selector.Due(start)
	if err != nil {
		metrics.Runs.WithLabelValues("error").Inc()
		return Result{}, &SelectionError{Err: err}
	}

	logger.Info("Dispatch run started",
		logger.Time("referenceTime", start),
		logger.Int("candidates", len(candidates)))

	processed := 0
	for _, track := range candidates {
		if o.claims != nil {
			won, err := o.claims.Claim(ctx, track.ID)
			if err != nil {
				logger.Warn("Claim check failed, processing without claim",
					logger.Int64("trackId", track.ID),
					logger.ErrorField(err))
			} else if !won {
				logger.Info("Track claimed by another invocation, skipping",
					logger.Int64("trackId", track.ID))
				metrics.TracksProcessed.WithLabelValues("skipped").Inc()
				continue
			}
		}

		trackStart := o.now()
		if err := o.processTrack(ctx, track); err != nil {
			// The catch-all failure path: status=failed plus exactly
			// one appended reason. markFailed itself must not fail the
			// batch either.
			if markErr := o.tracks.MarkFailed(track.ID, err.Error()); markErr != nil {
				logger.Error("Failed to mark track failed",
					logger.Int64("trackId", track.ID),
					logger.ErrorField(markErr))
			}
			logger.Error("Track dispatch failed",
				logger.Int64("trackId", track.ID),
				logger.ErrorField(err))
			metrics.TracksProcessed.WithLabelValues("failed").Inc()
			o.publish(events.Event{Type: events.TypeTrackFailed, TrackID: track.ID, Detail: err.Error()})
		} else {
			metrics.TracksProcessed.WithLabelValues("queued").Inc()
			o.publish(events.Event{Type: events.TypeTrackQueued, TrackID: track.ID})
		}
		metrics.TrackDispatchDuration.Observe(o.now().Sub(trackStart).Seconds())
		processed++
	}

	result := Result{OK: true, Processed: processed}
	metrics.Runs.WithLabelValues("ok").Inc()
	o.publish(events.Event{Type: events.TypeRunCompleted, Processed: processed})
	logger.Info("Dispatch run completed", logger.Int("processed", processed))
	return result, nil
}

// processTrack takes one track from payload to committed queued status. Any
// returned error routes the track to the failure path.
func (o *Orchestrator) processTrack(ctx context.Context, track *model.Track) error {
	payload, err := o.resolver.Resolve(ctx, track)
	if err != nil {
		return err
	}

	dispatch, err := o.formatter.Format(track, payload)
	if err != nil {
		return err
	}

	if err := o.sender.ScheduleMessage(ctx, o.chatID, dispatch.Text, dispatch.Entities, dispatch.MessageAt); err != nil {
		return &DeliveryError{Err: err}
	}

	// The message is already scheduled at the destination; a failure from
	// here on leaves it there with no file following it.
	if _, err := payload.Seek(0, io.SeekStart); err != nil {
		return &DeliveryError{Err: err}
	}
	if err := o.sender.ScheduleFile(ctx, o.chatID, payload, dispatch.Attachment, dispatch.FileAt); err != nil {
		return &DeliveryError{Err: err}
	}

	// Audit row first, then the status commit. The audit trail is
	// independent of status and its loss must not fail a delivered track.
	if _, err := o.dispatches.Record(track.ID, track.S3Path, o.now()); err != nil {
		logger.Warn("Failed to write dispatch audit record",
			logger.Int64("trackId", track.ID),
			logger.ErrorField(err))
	}

	if err := o.tracks.MarkQueued(track.ID); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) publish(event events.Event) {
	if o.hub != nil {
		o.hub.Publish(event)
	}
}
