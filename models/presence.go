// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// User is the identity a peer announces on the presence channel.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Color string `json:"color,omitempty"`
}

// PresenceEntry is one tracked connection of a peer. It lives only as long
// as the connection and is never persisted.
type PresenceEntry struct {
	PeerKey string `json:"peer_key"`
	User    User   `json:"user"`
}

// PresenceState maps a presence key to every entry tracked under it. A key
// holds several entries when the same identity is connected more than once.
type PresenceState map[string][]PresenceEntry

// Clone returns a deep copy of s.
func (s PresenceState) Clone() PresenceState {
	out := make(PresenceState, len(s))
	for k, entries := range s {
		cp := make([]PresenceEntry, len(entries))
		copy(cp, entries)
		out[k] = cp
	}
	return out
}

// PresenceEventKind tells observers why the presence state changed.
type PresenceEventKind string

const (
	PresenceSync  PresenceEventKind = "sync"
	PresenceJoin  PresenceEventKind = "join"
	PresenceLeave PresenceEventKind = "leave"
)

// PresenceEvent is delivered by a channel whenever its presence state changes.
// Entries lists the joined or left entries; it is empty for sync events.
type PresenceEvent struct {
	Kind    PresenceEventKind `json:"kind"`
	Key     string            `json:"key,omitempty"`
	Entries []PresenceEntry   `json:"entries,omitempty"`
}
