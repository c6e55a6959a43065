/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/grimnir_tv/internal/lineup"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/schedule"
)

// channelSummary is the list view of a channel.
type channelSummary struct {
	Number    int       `json:"number"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Programs  int       `json:"programs"`
	Duration  int64     `json:"duration"`
	StartTime time.Time `json:"startTime"`
}

func (a *API) handleChannelsList(w http.ResponseWriter, r *http.Request) {
	list, err := a.channels.ListChannels(r.Context())
	if err != nil {
		a.writeServiceError(w, err, "list channels failed")
		return
	}
	out := make([]channelSummary, 0, len(list))
	for _, ch := range list {
		out = append(out, channelSummary{
			Number:    ch.Number,
			Name:      ch.Name,
			Icon:      ch.Icon,
			Programs:  len(ch.Programs),
			Duration:  ch.Duration,
			StartTime: ch.StartTime,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleChannelGet(w http.ResponseWriter, r *http.Request) {
	number, ok := channelNumber(w, r)
	if !ok {
		return
	}
	ch, err := a.channels.GetChannel(r.Context(), number)
	if err != nil {
		a.writeServiceError(w, err, "load channel failed")
		return
	}
	if ch == nil {
		writeError(w, http.StatusNotFound, "channel_not_found")
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (a *API) handleChannelPut(w http.ResponseWriter, r *http.Request) {
	number, ok := channelNumber(w, r)
	if !ok {
		return
	}
	var ch models.Channel
	if !decodeJSON(w, r, &ch) {
		return
	}
	ch.Number = number
	if err := a.channels.SaveChannel(r.Context(), &ch); err != nil {
		a.writeServiceError(w, err, "save channel failed")
		return
	}
	writeJSON(w, http.StatusOK, &ch)
}

func (a *API) handleChannelDelete(w http.ResponseWriter, r *http.Request) {
	number, ok := channelNumber(w, r)
	if !ok {
		return
	}
	if err := a.channels.DeleteChannel(r.Context(), number); err != nil {
		a.writeServiceError(w, err, "delete channel failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLineup resolves what the channel airs now. Query parameters: first=1
// for a viewer tuning in, mode=loading|interlude for gap items, session for
// retry-loop throttling, and at=<epoch ms> to resolve another instant.
func (a *API) handleLineup(w http.ResponseWriter, r *http.Request) {
	number, ok := channelNumber(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	opts := lineup.Options{Session: q.Get("session")}
	switch strings.ToLower(q.Get("first")) {
	case "1", "true", "yes":
		opts.First = true
	}
	switch mode := lineup.Mode(q.Get("mode")); mode {
	case lineup.ModeNormal, lineup.ModeLoading, lineup.ModeInterlude:
		opts.Mode = mode
	default:
		writeError(w, http.StatusBadRequest, "invalid_mode")
		return
	}

	now := a.now()
	if at := q.Get("at"); at != "" {
		ms, err := strconv.ParseInt(at, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time")
			return
		}
		now = time.UnixMilli(ms)
	}

	item, err := a.resolver.Resolve(r.Context(), number, now, opts)
	if err != nil {
		a.writeServiceError(w, err, "resolve lineup failed")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handlePlaybackClear(w http.ResponseWriter, r *http.Request) {
	number, ok := channelNumber(w, r)
	if !ok {
		return
	}
	a.channels.ClearPlayback(number)
	w.WriteHeader(http.StatusNoContent)
}

type randomSlotsRequest struct {
	Programs []models.Program             `json:"programs"`
	Schedule schedule.RandomSlotsSchedule `json:"schedule"`
}

type timeSlotsRequest struct {
	Programs []models.Program           `json:"programs"`
	Schedule schedule.TimeSlotsSchedule `json:"schedule"`
}

func (a *API) handleRandomSlots(w http.ResponseWriter, r *http.Request) {
	number, ok := channelNumber(w, r)
	if !ok {
		return
	}
	var req randomSlotsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ch, err := a.channels.CompileRandomSlots(r.Context(), number, req.Programs, req.Schedule)
	if err != nil {
		a.writeServiceError(w, err, "random slots compile failed")
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (a *API) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	number, ok := channelNumber(w, r)
	if !ok {
		return
	}
	var req timeSlotsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ch, err := a.channels.CompileTimeSlots(r.Context(), number, req.Programs, req.Schedule)
	if err != nil {
		a.writeServiceError(w, err, "time slots compile failed")
		return
	}
	writeJSON(w, http.StatusOK, ch)
}
