// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by snapshot repositories. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrSnapshotNotFound is returned when no row exists for a document key.
	ErrSnapshotNotFound = errors.New("snapshot was not found")

	// ErrSnapshotAlreadyExists is returned by an insert racing with another
	// writer that created the row first.
	ErrSnapshotAlreadyExists = errors.New("snapshot already exists")

	// ErrStorageUnavailable wraps failures the database classified as
	// transient (lost connection, serialization failure, ...).
	ErrStorageUnavailable = errors.New("snapshot storage is unavailable")

	// ErrUnsupportedDriver is returned for an unknown storage driver name.
	ErrUnsupportedDriver = errors.New("unsupported storage driver")

	// ErrInvalidIdentifier is returned when a configured table or column
	// name is not a plain SQL identifier.
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
)

// Low-level database operation errors.
var (
	ErrBuildingSQLQuery   = errors.New("error building sql query")
	ErrExecutingQuery     = errors.New("error executing sql query")
	ErrExecutingStatement = errors.New("failed to execute statement")
	ErrScanningRow        = errors.New("failed to scan snapshot row")
)
