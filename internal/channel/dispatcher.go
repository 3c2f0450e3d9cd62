// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package channel

import (
	"slices"
	"sync"

	"github.com/MKhiriev/weave-sync/models"
)

// Dispatcher turns relay envelopes into Handlers calls and keeps the
// subscriber's copy of the presence state. Transports that speak the
// envelope protocol share it; Dispatch must be called from one goroutine.
type Dispatcher struct {
	handlers Handlers

	mu    sync.Mutex
	state models.PresenceState
}

// NewDispatcher returns a dispatcher delivering to h.
func NewDispatcher(h Handlers) *Dispatcher {
	return &Dispatcher{handlers: h, state: make(models.PresenceState)}
}

// Dispatch handles one inbound envelope. Unknown envelope types are ignored.
func (d *Dispatcher) Dispatch(env models.Envelope) {
	switch env.Type {
	case models.EnvelopeBroadcast:
		if d.handlers.OnBroadcast != nil {
			d.handlers.OnBroadcast(env.Event, []byte(env.Payload))
		}
	case models.EnvelopePresenceState:
		d.replace(env.State)
	case models.EnvelopePresenceDiff:
		if env.Diff != nil {
			d.apply(*env.Diff)
		}
	}
}

// Status forwards a connection status change.
func (d *Dispatcher) Status(status models.ChannelStatus, err error) {
	if d.handlers.OnStatus != nil {
		d.handlers.OnStatus(status, err)
	}
}

// State returns a copy of the presence state.
func (d *Dispatcher) State() models.PresenceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

// Reset forgets the presence state without notifying anyone. Transports call
// it when the connection drops; the relay resends the full state on the next
// subscription.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.state = make(models.PresenceState)
	d.mu.Unlock()
}

// replace installs a full state, reporting what joined and left relative to
// the previous one.
func (d *Dispatcher) replace(next models.PresenceState) {
	d.mu.Lock()
	prev := d.state
	d.state = next.Clone()
	if d.state == nil {
		d.state = make(models.PresenceState)
	}
	diff := DiffStates(prev, d.state)
	d.mu.Unlock()

	d.emit(diff)
}

func (d *Dispatcher) apply(diff models.PresenceDiff) {
	d.mu.Lock()
	ApplyDiff(d.state, diff)
	d.mu.Unlock()

	d.emit(diff)
}

func (d *Dispatcher) emit(diff models.PresenceDiff) {
	if d.handlers.OnPresence == nil {
		return
	}

	for _, key := range sortedKeys(diff.Joins) {
		d.handlers.OnPresence(models.PresenceEvent{
			Kind: models.PresenceJoin, Key: key, Entries: diff.Joins[key],
		}, d.State())
	}
	for _, key := range sortedKeys(diff.Leaves) {
		d.handlers.OnPresence(models.PresenceEvent{
			Kind: models.PresenceLeave, Key: key, Entries: diff.Leaves[key],
		}, d.State())
	}
	d.handlers.OnPresence(models.PresenceEvent{Kind: models.PresenceSync}, d.State())
}

// ApplyDiff mutates state in place: leaves are removed by peer key, then
// joins are added, replacing entries with the same peer key. Keys left
// without entries are dropped.
func ApplyDiff(state models.PresenceState, diff models.PresenceDiff) {
	for key, leaves := range diff.Leaves {
		entries := slices.DeleteFunc(state[key], func(e models.PresenceEntry) bool {
			return containsPeer(leaves, e.PeerKey)
		})
		if len(entries) == 0 {
			delete(state, key)
			continue
		}
		state[key] = entries
	}
	for key, joins := range diff.Joins {
		entries := slices.DeleteFunc(state[key], func(e models.PresenceEntry) bool {
			return containsPeer(joins, e.PeerKey)
		})
		state[key] = append(entries, joins...)
	}
}

// DiffStates returns the entries present in next but not in prev (joins) and
// the ones present in prev but not in next (leaves), compared by peer key.
func DiffStates(prev, next models.PresenceState) models.PresenceDiff {
	diff := models.PresenceDiff{
		Joins:  make(models.PresenceState),
		Leaves: make(models.PresenceState),
	}
	for key, entries := range next {
		for _, e := range entries {
			if !containsPeer(prev[key], e.PeerKey) {
				diff.Joins[key] = append(diff.Joins[key], e)
			}
		}
	}
	for key, entries := range prev {
		for _, e := range entries {
			if !containsPeer(next[key], e.PeerKey) {
				diff.Leaves[key] = append(diff.Leaves[key], e)
			}
		}
	}
	return diff
}

func containsPeer(entries []models.PresenceEntry, peerKey string) bool {
	return slices.ContainsFunc(entries, func(e models.PresenceEntry) bool {
		return e.PeerKey == peerKey
	})
}

func sortedKeys(s models.PresenceState) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
