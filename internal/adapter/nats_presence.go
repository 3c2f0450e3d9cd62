// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/weave-sync/models"
)

// natsPresence is the presence table a NATSChannel builds from heartbeats.
// A broker keeps no state, so every subscriber keeps its own copy and
// forgets peers whose heartbeats stop for longer than timeout.
type natsPresence struct {
	clock   clockwork.Clock
	timeout time.Duration
	peers   map[string]natsPeer
}

type natsPeer struct {
	key   string
	entry models.PresenceEntry
	seen  time.Time
}

func newNATSPresence(clock clockwork.Clock, timeout time.Duration) *natsPresence {
	return &natsPresence{
		clock:   clock,
		timeout: timeout,
		peers:   make(map[string]natsPeer),
	}
}

// heartbeat renews sender. It reports a join when the sender is new or
// announced a different entry.
func (p *natsPresence) heartbeat(sender, key string, entry models.PresenceEntry) (models.PresenceDiff, bool) {
	entry.PeerKey = sender
	prev, known := p.peers[sender]
	p.peers[sender] = natsPeer{key: key, entry: entry, seen: p.clock.Now()}

	if known && prev.key == key && prev.entry == entry {
		return models.PresenceDiff{}, false
	}

	diff := models.PresenceDiff{Joins: models.PresenceState{key: {entry}}}
	if known {
		diff.Leaves = models.PresenceState{prev.key: {prev.entry}}
	}
	return diff, true
}

// leave drops sender.
func (p *natsPresence) leave(sender string) (models.PresenceDiff, bool) {
	prev, ok := p.peers[sender]
	if !ok {
		return models.PresenceDiff{}, false
	}
	delete(p.peers, sender)
	return models.PresenceDiff{Leaves: models.PresenceState{prev.key: {prev.entry}}}, true
}

// expire drops every peer except self whose last heartbeat is older than
// the timeout.
func (p *natsPresence) expire(self string) (models.PresenceDiff, bool) {
	now := p.clock.Now()
	leaves := make(models.PresenceState)
	for sender, peer := range p.peers {
		if sender == self || now.Sub(peer.seen) <= p.timeout {
			continue
		}
		delete(p.peers, sender)
		leaves[peer.key] = append(leaves[peer.key], peer.entry)
	}
	if len(leaves) == 0 {
		return models.PresenceDiff{}, false
	}
	return models.PresenceDiff{Leaves: leaves}, true
}

func (p *natsPresence) reset() {
	p.peers = make(map[string]natsPeer)
}

func (p *natsPresence) len() int {
	return len(p.peers)
}
