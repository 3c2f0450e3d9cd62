// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package channel

import (
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/models"
)

// Sink receives the envelopes addressed to one hub member. Deliver is
// called from the member's own goroutine, one envelope at a time.
type Sink interface {
	Deliver(env models.Envelope)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(env models.Envelope)

func (f SinkFunc) Deliver(env models.Envelope) { f(env) }

// Hub fans broadcasts and presence out to the members of named rooms. It
// backs the relay server and the in-memory channel used by tests and
// single-process setups.
type Hub struct {
	logger *logger.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	name    string
	members []*Member
}

// NewHub returns an empty hub.
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]*room),
	}
}

// Join adds a member to roomName under the presence key key. The member
// receives the current presence state as its first envelope.
func (h *Hub) Join(roomName, key string, sink Sink) (*Member, error) {
	if roomName == "" {
		return nil, ErrEmptyRoom
	}

	m := &Member{
		id:     ulid.Make().String(),
		key:    key,
		hub:    h,
		outbox: newOutbox(sink),
	}

	h.mu.Lock()
	r, ok := h.rooms[roomName]
	if !ok {
		r = &room{name: roomName}
		h.rooms[roomName] = r
	}
	m.room = r
	r.members = append(r.members, m)
	m.outbox.push(models.Envelope{Type: models.EnvelopePresenceState, State: r.state()})
	size := len(r.members)
	h.mu.Unlock()

	h.logger.Debug().
		Str("func", "Hub.Join").
		Str("room", roomName).
		Str("member", m.id).
		Int("members", size).
		Msg("member joined")
	return m, nil
}

// Rooms returns the names of rooms with at least one member.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.rooms))
	for name := range h.rooms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Members returns the number of members in roomName.
func (h *Hub) Members(roomName string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[roomName]; ok {
		return len(r.members)
	}
	return 0
}

// state builds the room's presence state. Callers hold the hub lock.
func (r *room) state() models.PresenceState {
	state := make(models.PresenceState)
	for _, m := range r.members {
		if m.entry != nil {
			state[m.key] = append(state[m.key], *m.entry)
		}
	}
	return state
}

// Member is one connection in a hub room.
type Member struct {
	id  string
	key string
	hub *Hub

	// guarded by hub.mu
	room  *room
	entry *models.PresenceEntry
	left  bool

	outbox *outbox
}

// ID returns the hub-assigned connection id.
func (m *Member) ID() string {
	return m.id
}

// Key returns the presence key the member joined with.
func (m *Member) Key() string {
	return m.key
}

// Broadcast delivers payload to every other member of the room.
func (m *Member) Broadcast(event models.Event, payload []byte) error {
	env := models.Envelope{
		Type:    models.EnvelopeBroadcast,
		Event:   event,
		Payload: models.ByteArray(payload),
		Sender:  m.id,
	}

	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if m.left {
		return ErrClosed
	}
	for _, other := range m.room.members {
		if other != m {
			other.outbox.push(env)
		}
	}
	return nil
}

// Track sets the member's presence entry. The entry's PeerKey is replaced
// with the member id so that every connection is told apart.
func (m *Member) Track(entry models.PresenceEntry) error {
	entry.PeerKey = m.id

	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if m.left {
		return ErrClosed
	}

	diff := models.PresenceDiff{Joins: models.PresenceState{m.key: {entry}}}
	if m.entry != nil {
		diff.Leaves = models.PresenceState{m.key: {*m.entry}}
	}
	m.entry = &entry
	m.room.publishDiff(diff)
	return nil
}

// Untrack withdraws the member's presence entry.
func (m *Member) Untrack() error {
	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if m.left {
		return ErrClosed
	}
	m.untrackLocked()
	return nil
}

// SendState delivers the current room presence state to this member only.
func (m *Member) SendState() error {
	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if m.left {
		return ErrClosed
	}
	m.outbox.push(models.Envelope{Type: models.EnvelopePresenceState, State: m.room.state()})
	return nil
}

// Leave removes the member from its room, withdrawing its presence. Envelopes
// already queued for the member are still delivered; nothing is queued after.
// Leave is idempotent.
func (m *Member) Leave() {
	h := m.hub
	h.mu.Lock()
	if m.left {
		h.mu.Unlock()
		return
	}
	m.untrackLocked()
	m.left = true

	r := m.room
	r.members = slices.DeleteFunc(r.members, func(o *Member) bool { return o == m })
	if len(r.members) == 0 {
		delete(h.rooms, r.name)
	}
	h.mu.Unlock()

	m.outbox.close()

	h.logger.Debug().
		Str("func", "Member.Leave").
		Str("room", r.name).
		Str("member", m.id).
		Msg("member left")
}

func (m *Member) untrackLocked() {
	if m.entry == nil {
		return
	}
	diff := models.PresenceDiff{Leaves: models.PresenceState{m.key: {*m.entry}}}
	m.entry = nil
	m.room.publishDiff(diff)
}

func (r *room) publishDiff(diff models.PresenceDiff) {
	env := models.Envelope{Type: models.EnvelopePresenceDiff, Diff: &diff}
	for _, m := range r.members {
		m.outbox.push(env)
	}
}

// outbox delivers envelopes to a sink in order on a dedicated goroutine, so
// a slow member never blocks the hub.
type outbox struct {
	sink Sink

	mu     sync.Mutex
	queue  []models.Envelope
	closed bool
	notify chan struct{}
	done   chan struct{}
}

func newOutbox(sink Sink) *outbox {
	o := &outbox{
		sink:   sink,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) push(env models.Envelope) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.queue = append(o.queue, env)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *outbox) run() {
	defer close(o.done)
	for range o.notify {
		for {
			o.mu.Lock()
			if len(o.queue) == 0 {
				closed := o.closed
				o.mu.Unlock()
				if closed {
					return
				}
				break
			}
			env := o.queue[0]
			o.queue = o.queue[1:]
			o.mu.Unlock()

			o.sink.Deliver(env)
		}
	}
}
