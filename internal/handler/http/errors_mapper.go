// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/weave-sync/internal/service"
	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/models"
)

// errorStatusList is checked in order; the first match wins.
var errorStatusList = []struct {
	err    error
	status int
}{
	{service.ErrInvalidDocumentKey, http.StatusBadRequest},
	{service.ErrEmptySnapshot, http.StatusBadRequest},
	{service.ErrMalformedSnapshot, http.StatusBadRequest},
	{service.ErrSnapshotTooLarge, http.StatusRequestEntityTooLarge},
	{models.ErrMalformedByteArray, http.StatusBadRequest},
	{ErrInvalidDocumentKey, http.StatusBadRequest},

	{store.ErrSnapshotNotFound, http.StatusNotFound},
	{store.ErrSnapshotAlreadyExists, http.StatusConflict},
	{store.ErrStorageUnavailable, http.StatusServiceUnavailable},

	{store.ErrBuildingSQLQuery, http.StatusInternalServerError},
	{store.ErrExecutingQuery, http.StatusInternalServerError},
	{store.ErrExecutingStatement, http.StatusInternalServerError},
	{store.ErrScanningRow, http.StatusInternalServerError},
}

func statusFromError(err error) int {
	for _, e := range errorStatusList {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
