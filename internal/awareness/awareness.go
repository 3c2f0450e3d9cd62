// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package awareness keeps the ephemeral per-peer metadata of a session
// (display name, color, cursor) and encodes it for the wire. Awareness is
// relayed between peers but never persisted.
//
// Every client owns one state, versioned by a per-client clock. A state
// that is not renewed within OutdatedTimeout is dropped by CheckOutdated,
// so crashed peers disappear on their own.
package awareness

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// OutdatedTimeout is how long a remote state lives without being renewed.
// The local state is renewed after half of it.
const OutdatedTimeout = 30 * time.Second

// CheckInterval is the period at which CheckOutdated is meant to run.
const CheckInterval = OutdatedTimeout / 10

// State is one client's awareness state: a JSON object.
type State map[string]any

// Origin tells observers where a change came from.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
	OriginTimeout
	// OriginDisconnect marks states dropped because the session lost its
	// channel. Such removals stay local.
	OriginDisconnect
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginTimeout:
		return "timeout"
	case OriginDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Change lists the clients whose state was added, updated or removed by one
// operation. Updated includes clients whose state was renewed unchanged.
type Change struct {
	Added   []uint64
	Updated []uint64
	Removed []uint64
}

// Clients returns every client mentioned by c.
func (c Change) Clients() []uint64 {
	out := make([]uint64, 0, len(c.Added)+len(c.Updated)+len(c.Removed))
	out = append(out, c.Added...)
	out = append(out, c.Updated...)
	return append(out, c.Removed...)
}

// Empty reports whether c mentions no client.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Observer is notified after every operation that touched at least one
// client.
type Observer func(change Change, origin Origin)

type meta struct {
	clock       uint64
	lastUpdated time.Time
}

// Awareness holds the states of all known clients.
type Awareness struct {
	clientID uint64
	clock    clockwork.Clock

	mu     sync.Mutex
	states map[uint64]State
	meta   map[uint64]meta

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int
}

// New returns an awareness store for clientID with an empty local state.
// A nil clock means the real one.
func New(clientID uint64, clock clockwork.Clock) *Awareness {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Awareness{
		clientID:  clientID,
		clock:     clock,
		states:    make(map[uint64]State),
		meta:      make(map[uint64]meta),
		observers: make(map[int]Observer),
	}
}

func (a *Awareness) ClientID() uint64 {
	return a.clientID
}

// LocalState returns a copy of the local state, or nil when it is cleared.
func (a *Awareness) LocalState() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneState(a.states[a.clientID])
}

// SetLocalState replaces the local state and bumps its clock. A nil state
// clears it, which peers observe as a removal.
func (a *Awareness) SetLocalState(state State) {
	a.mu.Lock()
	_, existed := a.states[a.clientID]
	m := a.meta[a.clientID]
	a.meta[a.clientID] = meta{clock: m.clock + 1, lastUpdated: a.clock.Now()}

	var change Change
	switch {
	case state == nil:
		delete(a.states, a.clientID)
		if existed {
			change.Removed = []uint64{a.clientID}
		}
	case !existed:
		a.states[a.clientID] = cloneState(state)
		change.Added = []uint64{a.clientID}
	default:
		a.states[a.clientID] = cloneState(state)
		change.Updated = []uint64{a.clientID}
	}
	a.mu.Unlock()

	a.notify(change, OriginLocal)
}

// SetLocalStateField sets one field of the local state.
func (a *Awareness) SetLocalStateField(field string, value any) {
	state := a.LocalState()
	if state == nil {
		state = make(State)
	}
	state[field] = value
	a.SetLocalState(state)
}

// States returns a copy of every known state keyed by client id.
func (a *Awareness) States() map[uint64]State {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[uint64]State, len(a.states))
	for id, s := range a.states {
		out[id] = cloneState(s)
	}
	return out
}

// RemoteClients returns the ids of every known client except the local one.
func (a *Awareness) RemoteClients() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]uint64, 0, len(a.states))
	for id := range a.states {
		if id != a.clientID {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// RemoveStates drops the states of clients. Removing the local client bumps
// its clock so that the removal wins on other peers.
func (a *Awareness) RemoveStates(clients []uint64, origin Origin) {
	a.mu.Lock()
	var change Change
	for _, id := range clients {
		if _, ok := a.states[id]; !ok {
			continue
		}
		delete(a.states, id)
		if id == a.clientID {
			m := a.meta[id]
			a.meta[id] = meta{clock: m.clock + 1, lastUpdated: a.clock.Now()}
		}
		change.Removed = append(change.Removed, id)
	}
	a.mu.Unlock()

	a.notify(change, origin)
}

// ApplyUpdate merges an encoded update from a peer. A state is taken when
// its clock is newer than the known one; a removal also wins at an equal
// clock. The local state is never removed remotely: its clock is bumped
// instead so the next broadcast reasserts it.
func (a *Awareness) ApplyUpdate(update []byte, origin Origin) error {
	records, err := decodeUpdate(update)
	if err != nil {
		return err
	}

	now := a.clock.Now()
	var change Change

	a.mu.Lock()
	for _, r := range records {
		m, known := a.meta[r.client]
		_, exists := a.states[r.client]
		if known && !(m.clock < r.clock || (m.clock == r.clock && r.state == nil && exists)) {
			continue
		}

		clock := r.clock
		if r.state == nil {
			if r.client == a.clientID && exists {
				clock++
			} else {
				delete(a.states, r.client)
			}
		} else {
			a.states[r.client] = r.state
		}
		a.meta[r.client] = meta{clock: clock, lastUpdated: now}

		switch {
		case r.state == nil && exists && r.client != a.clientID:
			change.Removed = append(change.Removed, r.client)
		case r.state != nil && !exists:
			change.Added = append(change.Added, r.client)
		case r.state != nil && exists:
			change.Updated = append(change.Updated, r.client)
		}
	}
	a.mu.Unlock()

	a.notify(change, origin)
	return nil
}

// EncodeUpdate encodes the current states of clients. Clients without a
// state are encoded as removals.
func (a *Awareness) EncodeUpdate(clients ...uint64) []byte {
	a.mu.Lock()
	records := make([]record, 0, len(clients))
	for _, id := range clients {
		records = append(records, record{
			client: id,
			clock:  a.meta[id].clock,
			state:  a.states[id],
		})
	}
	data := encodeUpdate(records)
	a.mu.Unlock()

	return data
}

// CheckOutdated renews the local state when half of OutdatedTimeout has
// passed since its last update and drops remote states older than
// OutdatedTimeout.
func (a *Awareness) CheckOutdated() {
	now := a.clock.Now()

	a.mu.Lock()
	local, hasLocal := a.states[a.clientID]
	renew := hasLocal && now.Sub(a.meta[a.clientID].lastUpdated) >= OutdatedTimeout/2

	var outdated []uint64
	for id, m := range a.meta {
		if id == a.clientID {
			continue
		}
		if _, ok := a.states[id]; ok && now.Sub(m.lastUpdated) >= OutdatedTimeout {
			outdated = append(outdated, id)
		}
	}
	a.mu.Unlock()

	if renew {
		a.SetLocalState(local)
	}
	if len(outdated) > 0 {
		slices.Sort(outdated)
		a.RemoveStates(outdated, OriginTimeout)
	}
}

// Observe registers fn and returns a function that removes it.
func (a *Awareness) Observe(fn Observer) func() {
	a.obsMu.Lock()
	id := a.nextObsID
	a.nextObsID++
	a.observers[id] = fn
	a.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.obsMu.Lock()
			delete(a.observers, id)
			a.obsMu.Unlock()
		})
	}
}

func (a *Awareness) notify(change Change, origin Origin) {
	if change.Empty() {
		return
	}

	a.obsMu.RLock()
	ids := slices.Sorted(maps.Keys(a.observers))
	handlers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, a.observers[id])
	}
	a.obsMu.RUnlock()

	for _, fn := range handlers {
		fn(change, origin)
	}
}

func cloneState(s State) State {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return maps.Clone(s)
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		return maps.Clone(s)
	}
	return out
}

// Equal reports whether two states hold the same JSON value.
func Equal(a, b State) bool {
	return reflect.DeepEqual(cloneState(a), cloneState(b))
}
