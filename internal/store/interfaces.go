// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package store persists document snapshots. A snapshot is kept in one row
// per document, keyed by a configurable identifier column; the SQL
// repositories work on Postgres and SQLite, the memory repository backs
// tests and throwaway sessions.
package store

import (
	"context"

	"github.com/MKhiriev/weave-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/snapshot_repository_mock.go -package=mock

// SnapshotRepository loads and writes the latest snapshot of a document.
type SnapshotRepository interface {
	// LoadSnapshot returns the stored snapshot or ErrSnapshotNotFound.
	LoadSnapshot(ctx context.Context, key models.DocumentKey) (models.Snapshot, error)

	// UpdateSnapshot overwrites the content of an existing row and returns
	// the number of rows affected; zero means no row exists for key.
	UpdateSnapshot(ctx context.Context, key models.DocumentKey, content []byte) (int64, error)

	// InsertSnapshot creates the row for key. It fails with
	// ErrSnapshotAlreadyExists when the row is already there.
	InsertSnapshot(ctx context.Context, key models.DocumentKey, content []byte) error
}

// ErrorClassificator interprets driver errors.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
	IsUniqueViolation(err error) bool
}
