/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes channel administration and lineup resolution over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_tv/internal/channels"
	"github.com/friendsincode/grimnir_tv/internal/lineup"
	"github.com/friendsincode/grimnir_tv/internal/schedule"
	"github.com/friendsincode/grimnir_tv/internal/store"
)

// maxBodyBytes bounds request bodies; compiled program pools can be large.
const maxBodyBytes = 32 << 20

// API exposes HTTP handlers.
type API struct {
	channels *channels.Service
	resolver *lineup.Resolver
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates the API router wrapper.
func New(svc *channels.Service, resolver *lineup.Resolver, logger zerolog.Logger) *API {
	return &API{
		channels: svc,
		resolver: resolver,
		now:      time.Now,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers the API under /api/v1.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", a.handleChannelsList)
			r.Route("/{number}", func(r chi.Router) {
				r.Get("/", a.handleChannelGet)
				r.Put("/", a.handleChannelPut)
				r.Delete("/", a.handleChannelDelete)
				r.Get("/lineup", a.handleLineup)
				r.Delete("/playback", a.handlePlaybackClear)
				r.Post("/schedule/random-slots", a.handleRandomSlots)
				r.Post("/schedule/time-slots", a.handleTimeSlots)
			})
		})

		r.Route("/fillers", func(r chi.Router) {
			r.Get("/", a.handleFillersList)
			r.Post("/", a.handleFillerCreate)
			r.Get("/{fillerID}", a.handleFillerGet)
			r.Put("/{fillerID}", a.handleFillerPut)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func channelNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_channel_number")
		return 0, false
	}
	return n, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// writeServiceError maps domain errors onto status codes.
func (a *API) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_schedule",
			"field":   verr.Field,
			"message": verr.Message,
		})
	case errors.Is(err, channels.ErrInvalidChannel):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_channel", "message": err.Error()})
	case errors.Is(err, lineup.ErrChannelNotFound):
		writeError(w, http.StatusNotFound, "channel_not_found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, lineup.ErrCorruptSchedule):
		a.logger.Error().Err(err).Msg(msg)
		writeError(w, http.StatusInternalServerError, "corrupt_schedule")
	default:
		a.logger.Error().Err(err).Msg(msg)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
