// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/weave-sync/internal/crdt"
	"github.com/MKhiriev/weave-sync/models"
)

// MaxSnapshotSize bounds the encoded snapshot accepted from peers.
const MaxSnapshotSize = 8 << 20

// SnapshotServiceWrapper decorates a SnapshotService.
type SnapshotServiceWrapper interface {
	Wrap(SnapshotService) SnapshotService
}

// SnapshotValidationService rejects empty keys and snapshots that are not
// valid document updates.
type SnapshotValidationService struct {
	inner SnapshotService
}

func NewSnapshotValidationService() SnapshotServiceWrapper {
	return &SnapshotValidationService{}
}

func (v *SnapshotValidationService) Wrap(inner SnapshotService) SnapshotService {
	v.inner = inner
	return v
}

func (v *SnapshotValidationService) Load(ctx context.Context, key models.DocumentKey) (models.Snapshot, error) {
	if key.IsZero() {
		return models.Snapshot{}, ErrInvalidDocumentKey
	}
	return v.inner.Load(ctx, key)
}

func (v *SnapshotValidationService) Update(ctx context.Context, key models.DocumentKey, content []byte) (int64, error) {
	if err := validateSnapshot(key, content); err != nil {
		return 0, fmt.Errorf("error during snapshot validation before update: %w", err)
	}
	return v.inner.Update(ctx, key, content)
}

func (v *SnapshotValidationService) Insert(ctx context.Context, key models.DocumentKey, content []byte) error {
	if err := validateSnapshot(key, content); err != nil {
		return fmt.Errorf("error during snapshot validation before insert: %w", err)
	}
	return v.inner.Insert(ctx, key, content)
}

func validateSnapshot(key models.DocumentKey, content []byte) error {
	switch {
	case key.IsZero():
		return ErrInvalidDocumentKey
	case len(content) == 0:
		return ErrEmptySnapshot
	case len(content) > MaxSnapshotSize:
		return ErrSnapshotTooLarge
	}
	if _, err := crdt.MergeUpdates(content); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return nil
}
