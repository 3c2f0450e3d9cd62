// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package channel

import (
	"context"
	"sync"

	"github.com/MKhiriev/weave-sync/models"
)

// MemoryChannel is a Channel backed by an in-process Hub.
type MemoryChannel struct {
	hub  *Hub
	name string
	key  string

	mu         sync.Mutex
	handlers   *Handlers
	dispatcher *Dispatcher
	member     *Member
	tracked    *models.PresenceEntry
	gen        uint64
}

var _ Channel = (*MemoryChannel)(nil)

// NewMemoryChannel returns a channel joining room name of hub under the
// presence key key.
func NewMemoryChannel(hub *Hub, name, key string) *MemoryChannel {
	return &MemoryChannel{hub: hub, name: name, key: key}
}

func (c *MemoryChannel) Name() string {
	return c.name
}

// Subscribe joins the hub room. StatusSubscribed is reported once the hub
// acknowledges the join with the room's presence state.
func (c *MemoryChannel) Subscribe(h Handlers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers != nil {
		return ErrAlreadySubscribed
	}
	c.handlers = &h
	return c.joinLocked()
}

func (c *MemoryChannel) joinLocked() error {
	c.gen++
	gen := c.gen
	dispatcher := NewDispatcher(*c.handlers)
	first := true

	member, err := c.hub.Join(c.name, c.key, SinkFunc(func(env models.Envelope) {
		if !c.current(gen) {
			return
		}
		if first {
			first = false
			dispatcher.Status(models.StatusSubscribed, nil)
		}
		dispatcher.Dispatch(env)
	}))
	if err != nil {
		return err
	}

	c.dispatcher = dispatcher
	c.member = member
	if c.tracked != nil {
		return member.Track(*c.tracked)
	}
	return nil
}

func (c *MemoryChannel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.member != nil && c.gen == gen
}

func (c *MemoryChannel) Send(_ context.Context, event models.Event, payload []byte) error {
	c.mu.Lock()
	member := c.member
	c.mu.Unlock()

	if member == nil {
		return ErrNotSubscribed
	}
	return member.Broadcast(event, payload)
}

func (c *MemoryChannel) Track(_ context.Context, entry models.PresenceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracked = &entry
	if c.member == nil {
		return ErrNotSubscribed
	}
	return c.member.Track(entry)
}

func (c *MemoryChannel) Untrack(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracked = nil
	if c.member == nil {
		return ErrNotSubscribed
	}
	return c.member.Untrack()
}

func (c *MemoryChannel) PresenceState() models.PresenceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil {
		return make(models.PresenceState)
	}
	return c.dispatcher.State()
}

// Unsubscribe leaves the room. No handler starts after it returns.
func (c *MemoryChannel) Unsubscribe() error {
	c.mu.Lock()
	member := c.member
	c.member = nil
	c.handlers = nil
	c.dispatcher = nil
	c.tracked = nil
	c.mu.Unlock()

	if member == nil {
		return ErrNotSubscribed
	}
	member.Leave()
	return nil
}

// Drop simulates a lost connection: the channel leaves the room and reports
// status with err to its handlers. Resume joins again.
func (c *MemoryChannel) Drop(status models.ChannelStatus, err error) {
	c.mu.Lock()
	member := c.member
	dispatcher := c.dispatcher
	c.member = nil
	c.mu.Unlock()

	if member == nil {
		return
	}
	member.Leave()
	dispatcher.Reset()
	dispatcher.Status(status, err)
}

// Resume rejoins the room after Drop with the original handlers and
// re-tracks the last tracked entry.
func (c *MemoryChannel) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		return ErrNotSubscribed
	}
	if c.member != nil {
		return ErrAlreadySubscribed
	}
	return c.joinLocked()
}
