// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/camrec/internal/artifact"
	camlog "github.com/ManuGH/camrec/internal/log"
	"github.com/ManuGH/camrec/internal/recorder"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultMaxDuration = 120
	contentTypeMP4     = "video/mp4"
)

// SnapshotResponse acknowledges an accepted snapshot request. The recording
// itself runs in the background.
type SnapshotResponse struct {
	LocationID string `json:"locationId"`
	CameraID   string `json:"cameraId"`
	Duration   int    `json:"duration"`
	Time       string `json:"time"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStatus answers with a bare status code, as the original clients expect.
func writeStatus(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) requestLogger(r *http.Request) zerolog.Logger {
	return camlog.WithContext(r.Context(), s.logger).With().
		Str(camlog.FieldLocationID, chi.URLParam(r, "locationId")).
		Str(camlog.FieldCameraID, chi.URLParam(r, "cameraId")).
		Logger()
}

// requireReady rejects requests with 503 until device enumeration completes.
func (s *Server) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.registry.Ready() {
			s.logger.Info().Str(camlog.FieldEvent, "request.not_ready").Msg("request received, but application is not yet ready")
			writeStatus(w, http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// knownCamera writes 404 and returns false for an unknown location or camera.
func (s *Server) knownCamera(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (string, string, bool) {
	locationID := chi.URLParam(r, "locationId")
	cameraID := chi.URLParam(r, "cameraId")
	if !s.registry.LocationExists(locationID) {
		logger.Info().Str(camlog.FieldEvent, "request.unknown_location").Msg("requested location does not exist")
		writeStatus(w, http.StatusNotFound)
		return "", "", false
	}
	if !s.registry.CameraExists(locationID, cameraID) {
		logger.Info().Str(camlog.FieldEvent, "request.unknown_camera").Msg("requested camera does not exist in location")
		writeStatus(w, http.StatusNotFound)
		return "", "", false
	}
	return locationID, cameraID, true
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	requestedAt := time.Now()
	logger := s.requestLogger(r)
	locationID, cameraID, ok := s.knownCamera(w, r, logger)
	if !ok {
		return
	}

	raw := chi.URLParam(r, "duration")
	seconds, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		logger.Info().Str("duration", raw).Str(camlog.FieldEvent, "request.bad_duration").Msg("requested duration is not a number")
		writeStatus(w, http.StatusNotFound)
		return
	case seconds < 1:
		logger.Info().Int(camlog.FieldDuration, seconds).Str(camlog.FieldEvent, "request.bad_duration").Msg("requested duration is too short")
		writeStatus(w, http.StatusNotFound)
		return
	case seconds > s.cfg.MaxDuration:
		logger.Info().Int(camlog.FieldDuration, seconds).Str(camlog.FieldEvent, "request.bad_duration").Msg("requested duration is too long")
		writeStatus(w, http.StatusNotFound)
		return
	}

	// Debounced requests are acknowledged like accepted ones.
	s.recorder.Submit(r.Context(), recorder.Request{
		LocationID:  locationID,
		CameraID:    cameraID,
		Duration:    time.Duration(seconds) * time.Second,
		RequestedAt: requestedAt,
	})

	writeJSON(w, http.StatusOK, SnapshotResponse{
		LocationID: locationID,
		CameraID:   cameraID,
		Duration:   seconds,
		Time:       requestedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	locationID, cameraID, ok := s.knownCamera(w, r, logger)
	if !ok {
		return
	}

	f, info, err := s.artifacts.Open(locationID, cameraID)
	if err != nil {
		if errors.Is(err, artifact.ErrNoArtifact) {
			logger.Info().Str(camlog.FieldEvent, "collect.no_artifact").Msg("no recording available yet")
			writeStatus(w, http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str(camlog.FieldEvent, "collect.open_failed").Msg("opening recording failed")
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	logger.Info().
		Str(camlog.FieldEvent, "collect.serving").
		Int64("size", info.Size()).
		Msg("collecting video file")
	w.Header().Set("Content-Type", contentTypeMP4)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
