// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"

	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/models"
)

type snapshotService struct {
	snapshotRepository store.SnapshotRepository

	logger *logger.Logger
}

// NewSnapshotService returns the relay's snapshot service, validating input
// before it reaches snapshotRepository.
func NewSnapshotService(snapshotRepository store.SnapshotRepository, logger *logger.Logger) SnapshotService {
	inner := &snapshotService{
		snapshotRepository: snapshotRepository,
		logger:             logger,
	}
	return NewSnapshotValidationService().Wrap(inner)
}

func (s *snapshotService) Load(ctx context.Context, key models.DocumentKey) (models.Snapshot, error) {
	return s.snapshotRepository.LoadSnapshot(ctx, key)
}

func (s *snapshotService) Update(ctx context.Context, key models.DocumentKey, content []byte) (int64, error) {
	rows, err := s.snapshotRepository.UpdateSnapshot(ctx, key, content)
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Str("doc", key.String()).Int64("rows", rows).Int("size", len(content)).Msg("snapshot updated")
	return rows, nil
}

func (s *snapshotService) Insert(ctx context.Context, key models.DocumentKey, content []byte) error {
	if err := s.snapshotRepository.InsertSnapshot(ctx, key, content); err != nil {
		return err
	}
	s.logger.Debug().Str("doc", key.String()).Int("size", len(content)).Msg("snapshot inserted")
	return nil
}
