// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/models"
)

func (h *Handler) loadSnapshot(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	key, err := documentKey(r)
	if err != nil {
		h.writeError(w, r, "*Handler.loadSnapshot", err)
		return
	}

	snapshot, err := h.services.SnapshotService.Load(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrSnapshotNotFound) {
			log.Debug().Str("doc", key.String()).Msg("snapshot not found")
			http.Error(w, store.ErrSnapshotNotFound.Error(), http.StatusNotFound)
			return
		}
		h.writeError(w, r, "*Handler.loadSnapshot", err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) updateSnapshot(w http.ResponseWriter, r *http.Request) {
	key, body, err := snapshotRequest(r)
	if err != nil {
		h.writeError(w, r, "*Handler.updateSnapshot", err)
		return
	}

	rows, err := h.services.SnapshotService.Update(r.Context(), key, body.Content)
	if err != nil {
		h.writeError(w, r, "*Handler.updateSnapshot", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SaveResult{RowsAffected: rows})
}

func (h *Handler) insertSnapshot(w http.ResponseWriter, r *http.Request) {
	key, body, err := snapshotRequest(r)
	if err != nil {
		h.writeError(w, r, "*Handler.insertSnapshot", err)
		return
	}

	if err = h.services.SnapshotService.Insert(r.Context(), key, body.Content); err != nil {
		h.writeError(w, r, "*Handler.insertSnapshot", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func documentKey(r *http.Request) (models.DocumentKey, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || strings.TrimSpace(raw) == "" {
		return models.DocumentKey{}, ErrInvalidDocumentKey
	}
	return models.ParseDocumentKey(raw), nil
}

func snapshotRequest(r *http.Request) (models.DocumentKey, models.Snapshot, error) {
	key, err := documentKey(r)
	if err != nil {
		return models.DocumentKey{}, models.Snapshot{}, err
	}

	var body models.Snapshot
	if err = json.NewDecoder(r.Body).Decode(&body); err != nil {
		if !errors.Is(err, models.ErrMalformedByteArray) {
			err = errors.Join(models.ErrMalformedByteArray, err)
		}
		return models.DocumentKey{}, models.Snapshot{}, err
	}
	return key, body, nil
}

// writeError logs err and answers with the status it maps to. Server-side
// failures are not echoed to the caller.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, fn string, err error) {
	status := statusFromError(err)
	logger.FromRequest(r).Err(err).Str("func", fn).Int("status", status).Send()

	if status >= http.StatusInternalServerError {
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
