// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import "errors"

var (
	// ErrConfig is returned by NewSyncProvider for options it cannot run with.
	ErrConfig = errors.New("invalid sync provider configuration")
	// ErrPersistence wraps snapshot store failures returned from Save.
	ErrPersistence = errors.New("snapshot persistence failed")
	// ErrDestroyed is returned by operations on a destroyed session.
	ErrDestroyed = errors.New("sync session destroyed")
	// ErrNotSynced is returned by Save before the stored snapshot has been
	// loaded on the current connection.
	ErrNotSynced = errors.New("document not loaded from the snapshot store yet")

	ErrVersionIsNotSpecified = errors.New("app version is not specified")

	ErrInvalidDocumentKey = errors.New("invalid document key")
	ErrEmptySnapshot      = errors.New("empty snapshot content")
	ErrSnapshotTooLarge   = errors.New("snapshot content too large")
	ErrMalformedSnapshot  = errors.New("malformed snapshot content")
)
