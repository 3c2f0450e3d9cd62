// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package presence turns the raw presence state of a channel into the
// number of connected participants and resolves the identity a peer
// announces on it.
package presence

import (
	"sync"

	"github.com/MKhiriev/weave-sync/models"
)

// Observer receives the participant count together with the raw state it
// was computed from.
type Observer func(count int, state models.PresenceState)

// Tracker keeps the last presence state seen on a channel.
type Tracker struct {
	mu        sync.Mutex
	count     int
	state     models.PresenceState
	observers map[int]Observer
	nextID    int
}

func NewTracker() *Tracker {
	return &Tracker{
		state:     models.PresenceState{},
		observers: make(map[int]Observer),
	}
}

// Handle recomputes the count for sync, join and leave events and notifies
// observers. Other event kinds are ignored. state is the channel's full
// presence state after the event.
func (t *Tracker) Handle(event models.PresenceEvent, state models.PresenceState) {
	switch event.Kind {
	case models.PresenceSync, models.PresenceJoin, models.PresenceLeave:
	default:
		return
	}
	t.set(state)
}

// Reset forgets the known state, as after a disconnect, and notifies
// observers with a zero count.
func (t *Tracker) Reset() {
	t.set(nil)
}

func (t *Tracker) set(state models.PresenceState) {
	snapshot := state.Clone()
	count := Count(snapshot)

	t.mu.Lock()
	t.state = snapshot
	t.count = count
	observers := make([]Observer, 0, len(t.observers))
	for _, fn := range t.observers {
		observers = append(observers, fn)
	}
	t.mu.Unlock()

	for _, fn := range observers {
		fn(count, snapshot.Clone())
	}
}

// Count returns the participant count of the last handled state.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// State returns a copy of the last handled state.
func (t *Tracker) State() models.PresenceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// Observe registers fn and returns a function removing it.
func (t *Tracker) Observe(fn Observer) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.observers, id)
			t.mu.Unlock()
		})
	}
}

// Count returns the number of distinct non-empty user ids in state. When no
// entry carries a user id it falls back to the number of presence keys.
func Count(state models.PresenceState) int {
	users := make(map[string]struct{})
	for _, entries := range state {
		for _, e := range entries {
			if e.User.ID != "" {
				users[e.User.ID] = struct{}{}
			}
		}
	}
	if len(users) > 0 {
		return len(users)
	}
	return len(state)
}
