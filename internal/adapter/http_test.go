// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/models"
)

func newTestStore(t *testing.T, serverURL, token string) *HTTPSnapshotStore {
	t.Helper()
	s, err := NewHTTPSnapshotStore(serverURL, token, 5*time.Second, logger.Nop())
	require.NoError(t, err)
	return s
}

func TestNewHTTPSnapshotStore_InvalidURL(t *testing.T) {
	_, err := NewHTTPSnapshotStore("  ", "", time.Second, logger.Nop())
	assert.ErrorIs(t, err, ErrInvalidRelayURL)
}

func TestHTTPSnapshotStore_LoadSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/documents/notes%2F1/snapshot", r.URL.EscapedPath())
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[1,2,255],"updated_at":"2026-10-01T10:00:00Z"}`))
	}))
	defer srv.Close()

	key := models.NewStringKey("notes/1")
	got, err := newTestStore(t, srv.URL, "tok").LoadSnapshot(context.Background(), key)

	require.NoError(t, err)
	assert.Equal(t, key, got.Key)
	assert.Equal(t, models.ByteArray{1, 2, 255}, got.Content)
	assert.Equal(t, 2026, got.UpdatedAt.Year())
}

func TestHTTPSnapshotStore_LoadSnapshot_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "snapshot was not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestStore(t, srv.URL, "").LoadSnapshot(context.Background(), models.NewNumericKey(1))
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestHTTPSnapshotStore_UpdateSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/documents/42/snapshot", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"content":[7,8]}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.SaveResult{RowsAffected: 1})
	}))
	defer srv.Close()

	rows, err := newTestStore(t, srv.URL, "").UpdateSnapshot(context.Background(), models.NewNumericKey(42), []byte{7, 8})

	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}

func TestHTTPSnapshotStore_InsertSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "created", status: http.StatusCreated},
		{name: "conflict", status: http.StatusConflict, wantErr: store.ErrSnapshotAlreadyExists},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "bad request", status: http.StatusBadRequest, wantErr: ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestStore(t, srv.URL, "").InsertSnapshot(context.Background(), models.NewNumericKey(1), []byte{1})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPSnapshotStore_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[1]}`))
	}))
	defer srv.Close()

	got, err := newTestStore(t, srv.URL, "").LoadSnapshot(context.Background(), models.NewNumericKey(1))

	require.NoError(t, err)
	assert.Equal(t, models.ByteArray{1}, got.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSnapshotStore_PersistentOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestStore(t, srv.URL, "").UpdateSnapshot(context.Background(), models.NewNumericKey(1), []byte{1})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.ErrorIs(t, err, ErrBadGateway)
}
