// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crdt

// Origin tags every update a Document reports to its observers so that
// observers can tell their own writes from the ones they applied on behalf
// of someone else.
type Origin int

const (
	// OriginLocal marks mutations made through the document's own API.
	OriginLocal Origin = iota
	// OriginRemote marks deltas received from peers.
	OriginRemote
	// OriginResync marks full-state merges (loaded snapshots, resyncs).
	OriginResync
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginResync:
		return "resync"
	default:
		return "unknown"
	}
}

// UpdateHandler receives every effective update of a document. update holds
// only the changes that altered the document.
type UpdateHandler func(update []byte, origin Origin)

// Document is a replicated document.
type Document interface {
	// ClientID identifies the replica inside encoded updates.
	ClientID() uint64

	// ApplyUpdate merges a delta or a full-state encoding into the document.
	// Observers are notified with origin when the document changed.
	ApplyUpdate(update []byte, origin Origin) error

	// EncodeState returns the full state as a single update.
	EncodeState() []byte

	// MergeUpdates folds several updates into one without touching the
	// document.
	MergeUpdates(updates ...[]byte) ([]byte, error)

	// Observe registers fn for every effective update and returns a function
	// that removes it.
	Observe(fn UpdateHandler) (cancel func())
}
