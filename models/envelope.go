// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Event names a broadcast stream on a channel.
type Event string

const (
	// EventMessage carries merged update deltas or full-state resyncs.
	EventMessage Event = "message"
	// EventAwareness carries awareness protocol updates.
	EventAwareness Event = "awareness"
)

// EnvelopeType discriminates frames exchanged with a relay.
type EnvelopeType string

const (
	EnvelopeBroadcast     EnvelopeType = "broadcast"
	EnvelopeTrack         EnvelopeType = "presence_track"
	EnvelopeUntrack       EnvelopeType = "presence_untrack"
	EnvelopePresenceState EnvelopeType = "presence_state"
	EnvelopePresenceDiff  EnvelopeType = "presence_diff"
	EnvelopeSyncRequest   EnvelopeType = "presence_sync_request"
	EnvelopeHeartbeat     EnvelopeType = "presence_heartbeat"
)

// Envelope is the JSON frame of the channel wire protocol.
type Envelope struct {
	Type    EnvelopeType `json:"type"`
	Event   Event        `json:"event,omitempty"`
	Payload ByteArray    `json:"payload,omitempty"`

	// Sender is the connection that produced the frame; relays and brokers
	// use it to skip echoing a broadcast back to its author.
	Sender string `json:"sender,omitempty"`

	// Presence fields.
	Key   string         `json:"key,omitempty"`
	Entry *PresenceEntry `json:"entry,omitempty"`
	State PresenceState  `json:"state,omitempty"`
	Diff  *PresenceDiff  `json:"diff,omitempty"`
}

// PresenceDiff lists presence entries that joined or left since the last
// state or diff frame, keyed by presence key.
type PresenceDiff struct {
	Joins  PresenceState `json:"joins,omitempty"`
	Leaves PresenceState `json:"leaves,omitempty"`
}
