// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Snapshot is the full encoded state of a replicated document as it is kept
// by the persistence layer.
type Snapshot struct {
	// Key identifies the document row.
	Key DocumentKey `json:"-"`

	// Content is the encoded document state.
	Content ByteArray `json:"content"`

	// UpdatedAt is the time of the last successful write. Zero when unknown.
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// IsEmpty reports whether the snapshot carries no document state.
func (s Snapshot) IsEmpty() bool {
	return len(s.Content) == 0
}

// SaveResult is the response body of a snapshot update on the relay REST API.
type SaveResult struct {
	RowsAffected int64 `json:"rows_affected"`
}
