// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/utils"
	"github.com/MKhiriev/weave-sync/models"
)

// HTTPSnapshotStore keeps snapshots on the relay through its REST API:
//
//	GET  /api/documents/{key}/snapshot
//	PUT  /api/documents/{key}/snapshot
//	POST /api/documents/{key}/snapshot
type HTTPSnapshotStore struct {
	client *utils.HTTPClient
	token  string

	logger *logger.Logger
}

// NewHTTPSnapshotStore returns a store talking to the relay at baseURL. token,
// when non-empty, is sent as a bearer token with every request.
func NewHTTPSnapshotStore(baseURL, token string, timeout time.Duration, logger *logger.Logger) (*HTTPSnapshotStore, error) {
	client, err := utils.NewHTTPClient(baseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRelayURL, err)
	}
	return &HTTPSnapshotStore{
		client: client,
		token:  strings.TrimSpace(token),
		logger: logger,
	}, nil
}

// LoadSnapshot fetches the stored snapshot. A 404 maps to
// store.ErrSnapshotNotFound.
func (h *HTTPSnapshotStore) LoadSnapshot(ctx context.Context, key models.DocumentKey) (models.Snapshot, error) {
	var snapshot models.Snapshot

	resp, err := h.request(ctx).
		SetResult(&snapshot).
		Get(snapshotPath(key))
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load snapshot request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Snapshot{}, err
	}

	snapshot.Key = key
	return snapshot, nil
}

// UpdateSnapshot overwrites the stored snapshot and returns the number of
// rows the relay reports as changed.
func (h *HTTPSnapshotStore) UpdateSnapshot(ctx context.Context, key models.DocumentKey, content []byte) (int64, error) {
	var result models.SaveResult

	resp, err := h.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.Snapshot{Content: content}).
		SetResult(&result).
		Put(snapshotPath(key))
	if err != nil {
		return 0, fmt.Errorf("update snapshot request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return 0, err
	}

	h.logger.Debug().Str("doc", key.String()).Int64("rows", result.RowsAffected).Msg("snapshot updated on relay")
	return result.RowsAffected, nil
}

// InsertSnapshot creates the snapshot. A 409 maps to
// store.ErrSnapshotAlreadyExists.
func (h *HTTPSnapshotStore) InsertSnapshot(ctx context.Context, key models.DocumentKey, content []byte) error {
	resp, err := h.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.Snapshot{Content: content}).
		Post(snapshotPath(key))
	if err != nil {
		return fmt.Errorf("insert snapshot request: %w", err)
	}
	return mapHTTPError(resp)
}

func (h *HTTPSnapshotStore) request(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if h.token != "" {
		req.SetHeader("Authorization", "Bearer "+h.token)
	}
	return req
}

func snapshotPath(key models.DocumentKey) string {
	return "/api/documents/" + url.PathEscape(key.String()) + "/snapshot"
}
