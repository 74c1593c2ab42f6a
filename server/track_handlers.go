package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vibecast/logger"
	"vibecast/model"

	"github.com/gorilla/mux"
)

// CreateTrackRequest is the submission body for a curated track.
type CreateTrackRequest struct {
	Artist           string    `json:"artist"`
	Title            string    `json:"title"`
	SpotifyLink      string    `json:"spotifyLink"`
	YoutubeMusicLink string    `json:"youtubeMusicLink"`
	SourceURL        string    `json:"sourceUrl"`
	ScheduledAt      time.Time `json:"scheduledAt"`
}

// CreateTrackHandler stores a new curated track in status new.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Artist == "" || req.Title == "" {
		http.Error(w, "Artist and title are required", http.StatusBadRequest)
		return
	}
	if req.ScheduledAt.IsZero() {
		http.Error(w, "scheduledAt is required", http.StatusBadRequest)
		return
	}

	track := &model.Track{
		Artist:           req.Artist,
		Title:            req.Title,
		SpotifyLink:      req.SpotifyLink,
		YoutubeMusicLink: req.YoutubeMusicLink,
		SourceURL:        req.SourceURL,
		ScheduledAt:      req.ScheduledAt.UTC(),
		Status:           model.StatusNew,
	}

	id, err := h.tracks.CreateTrack(track)
	if err != nil {
		logger.Error("[CreateTrack] Failed to create track", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	track.ID = id

	writeJSON(w, http.StatusCreated, track)
}

// ListTracksHandler lists tracks, optionally filtered by comma-separated
// statuses: /api/tracks?status=new,failed
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	var statuses []model.TrackStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, model.TrackStatus(strings.TrimSpace(s)))
		}
	}

	tracks, err := h.tracks.ListTracks(statuses)
	if err != nil {
		logger.Error("[ListTracks] Failed to list tracks", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler returns one track with its full error history.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return
	}

	track, err := h.tracks.GetTrackByID(id)
	if err != nil {
		logger.Error("[GetTrack] Failed to get track", logger.Int64("trackId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, track)
}

// ListDispatchesHandler returns the audit trail for one track.
func (h *APIHandler) ListDispatchesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return
	}

	records, err := h.dispatches.ListByTrack(id)
	if err != nil {
		logger.Error("[ListDispatches] Failed to list dispatch records",
			logger.Int64("trackId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// RequeueTrackHandler resets a failed track to new. This is the out-of-band
// re-queue path; the error history stays intact.
func (h *APIHandler) RequeueTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return
	}

	if err := h.tracks.RequeueFailed(id); err != nil {
		logger.Warn("[Requeue] Failed to requeue track", logger.Int64("trackId", id), logger.ErrorField(err))
		http.Error(w, "Track is not in a failed state", http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"requeued": id})
}

// RunDispatchHandler triggers one pipeline run and returns its summary.
func (h *APIHandler) RunDispatchHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.Run(r.Context())
	if err != nil {
		logger.Error("[RunDispatch] Pipeline run failed", logger.ErrorField(err))
		http.Error(w, "Dispatch run failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
