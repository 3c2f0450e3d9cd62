// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/models"
)

type snapshotRepository struct {
	db      *DB
	queries snapshotQueries
	logger  *logger.Logger
}

// NewSnapshotRepository returns a SQL repository over db using the table
// layout from cfg (documents/content/id by default).
func NewSnapshotRepository(db *DB, cfg config.Storage, logger *logger.Logger) (SnapshotRepository, error) {
	queries, err := newSnapshotQueries(cfg, db.dialect)
	if err != nil {
		return nil, err
	}
	return &snapshotRepository{db: db, queries: queries, logger: logger}, nil
}

func (r *snapshotRepository) LoadSnapshot(ctx context.Context, key models.DocumentKey) (models.Snapshot, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.queries.load(key)
	if err != nil {
		log.Err(err).Str("func", "snapshotRepository.LoadSnapshot").Msg("failed to build select query")
		return models.Snapshot{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	snapshot := models.Snapshot{Key: key}
	var updatedAt sql.NullTime
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&snapshot.Content, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.LoadSnapshot").
			Str("key", key.String()).
			Msg("failed to load snapshot")
		return models.Snapshot{}, r.wrap(ErrScanningRow, err)
	}
	if updatedAt.Valid {
		snapshot.UpdatedAt = updatedAt.Time
	}

	return snapshot, nil
}

func (r *snapshotRepository) UpdateSnapshot(ctx context.Context, key models.DocumentKey, content []byte) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.queries.update(key, content)
	if err != nil {
		log.Err(err).Str("func", "snapshotRepository.UpdateSnapshot").Msg("failed to build update query")
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "snapshotRepository.UpdateSnapshot").
			Str("key", key.String()).
			Msg("failed to update snapshot")
		return 0, r.wrap(ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		log.Err(err).Str("func", "snapshotRepository.UpdateSnapshot").Msg("failed to read affected rows")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return affected, nil
}

func (r *snapshotRepository) InsertSnapshot(ctx context.Context, key models.DocumentKey, content []byte) error {
	log := logger.FromContext(ctx)

	query, args, err := r.queries.insert(key, content)
	if err != nil {
		log.Err(err).Str("func", "snapshotRepository.InsertSnapshot").Msg("failed to build insert query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		if r.db.errorClassificator != nil && r.db.errorClassificator.IsUniqueViolation(err) {
			return ErrSnapshotAlreadyExists
		}
		log.Err(err).
			Str("func", "snapshotRepository.InsertSnapshot").
			Str("key", key.String()).
			Msg("failed to insert snapshot")
		return r.wrap(ErrExecutingStatement, err)
	}

	return nil
}

// wrap attaches ErrStorageUnavailable to errors the driver reports as
// transient.
func (r *snapshotRepository) wrap(kind, err error) error {
	if r.db.errorClassificator != nil && r.db.errorClassificator.Classify(err) == Retryable {
		return fmt.Errorf("%w: %w: %w", ErrStorageUnavailable, kind, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
