// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/logger"
)

// Storages groups the repositories built from one storage configuration.
type Storages struct {
	Snapshots SnapshotRepository

	db *DB
}

// NewStorages opens the configured database, applies migrations and builds
// the snapshot repository. The "memory" driver needs no database.
func NewStorages(ctx context.Context, cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Str("driver", cfg.Driver).Msg("creating new storages...")

	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		return &Storages{Snapshots: NewMemorySnapshotRepository()}, nil
	case config.DriverPostgres:
		db, err = NewConnectPostgres(ctx, cfg, logger)
	case config.DriverSQLite:
		db, err = NewConnectSQLite(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connection error: %w", cfg.Driver, err)
	}

	if err = db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	snapshots, err := NewSnapshotRepository(db, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storages{Snapshots: snapshots, db: db}, nil
}

// Close releases the database connection, if any.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
