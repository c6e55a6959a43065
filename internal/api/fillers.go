/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

type fillerRequest struct {
	Name    string           `json:"name"`
	Content []models.Program `json:"content"`
}

func (a *API) handleFillersList(w http.ResponseWriter, r *http.Request) {
	list, err := a.channels.ListFillers(r.Context())
	if err != nil {
		a.writeServiceError(w, err, "list fillers failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleFillerCreate(w http.ResponseWriter, r *http.Request) {
	var req fillerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validClips(req.Content) {
		writeError(w, http.StatusBadRequest, "invalid_content")
		return
	}
	rec, err := a.channels.CreateFiller(r.Context(), req.Name, req.Content)
	if err != nil {
		a.writeServiceError(w, err, "create filler failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) handleFillerGet(w http.ResponseWriter, r *http.Request) {
	rec, err := a.channels.GetFiller(r.Context(), chi.URLParam(r, "fillerID"))
	if err != nil {
		a.writeServiceError(w, err, "load filler failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleFillerPut(w http.ResponseWriter, r *http.Request) {
	var req fillerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validClips(req.Content) {
		writeError(w, http.StatusBadRequest, "invalid_content")
		return
	}
	rec, err := a.channels.UpdateFiller(r.Context(), chi.URLParam(r, "fillerID"), req.Name, req.Content)
	if err != nil {
		a.writeServiceError(w, err, "update filler failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// validClips reports whether every clip is playable media.
func validClips(content []models.Program) bool {
	for _, p := range content {
		if p.IsOffline() || p.Duration <= 0 {
			return false
		}
	}
	return true
}
