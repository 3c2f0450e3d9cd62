// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crdt

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// entry is the latest known write of one key.
type entry struct {
	key     string
	value   string
	deleted bool
	clock   uint64
	client  uint64
}

// supersedes reports whether e wins over o. Writes are ordered by Lamport
// clock, then by client id; the remaining comparisons only break ties
// between conflicting payloads that claim the same (clock, client) pair.
func (e entry) supersedes(o entry) bool {
	if e.clock != o.clock {
		return e.clock > o.clock
	}
	if e.client != o.client {
		return e.client > o.client
	}
	if e.deleted != o.deleted {
		return e.deleted
	}
	return e.value > o.value
}

// Map is a last-writer-wins map of string fields. Deleted keys are kept as
// tombstones so a stale write cannot resurrect them.
type Map struct {
	clientID uint64

	mu      sync.Mutex
	entries map[string]entry
	clock   uint64

	obsMu     sync.RWMutex
	observers map[int]UpdateHandler
	nextObsID int
}

var _ Document = (*Map)(nil)

// NewMap returns an empty map replica identified by clientID.
func NewMap(clientID uint64) *Map {
	return &Map{
		clientID:  clientID,
		entries:   make(map[string]entry),
		observers: make(map[int]UpdateHandler),
	}
}

// NewRandomMap returns an empty replica with a random 32-bit client id.
func NewRandomMap() *Map {
	return NewMap(uint64(rand.Uint32()) + 1)
}

func (m *Map) ClientID() uint64 {
	return m.clientID
}

// Set writes value under key and notifies observers with OriginLocal.
func (m *Map) Set(key, value string) {
	m.write(entry{key: key, value: value})
}

// Delete removes key and notifies observers with OriginLocal.
func (m *Map) Delete(key string) {
	m.write(entry{key: key, deleted: true})
}

func (m *Map) write(e entry) {
	m.mu.Lock()
	m.clock++
	e.clock = m.clock
	e.client = m.clientID
	m.entries[e.key] = e
	m.mu.Unlock()

	m.notify(encodeEntries([]entry{e}), OriginLocal)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.deleted {
		return "", false
	}
	return e.value, true
}

// Keys returns the live keys in lexical order.
func (m *Map) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if !e.deleted {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// ToMap returns a copy of the live fields.
func (m *Map) ToMap() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.entries))
	for k, e := range m.entries {
		if !e.deleted {
			out[k] = e.value
		}
	}
	return out
}

func (m *Map) ApplyUpdate(update []byte, origin Origin) error {
	incoming, err := decodeEntries(update)
	if err != nil {
		return err
	}

	m.mu.Lock()
	changed := make([]entry, 0, len(incoming))
	for _, e := range incoming {
		if e.clock > m.clock {
			m.clock = e.clock
		}
		cur, ok := m.entries[e.key]
		if ok && !e.supersedes(cur) {
			continue
		}
		m.entries[e.key] = e
		changed = append(changed, e)
	}
	m.mu.Unlock()

	if len(changed) > 0 {
		m.notify(encodeEntries(changed), origin)
	}
	return nil
}

func (m *Map) EncodeState() []byte {
	m.mu.Lock()
	entries := make([]entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	return encodeEntries(entries)
}

func (m *Map) MergeUpdates(updates ...[]byte) ([]byte, error) {
	return MergeUpdates(updates...)
}

func (m *Map) Observe(fn UpdateHandler) func() {
	m.obsMu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = fn
	m.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.obsMu.Lock()
			delete(m.observers, id)
			m.obsMu.Unlock()
		})
	}
}

func (m *Map) notify(update []byte, origin Origin) {
	m.obsMu.RLock()
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]UpdateHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, m.observers[id])
	}
	m.obsMu.RUnlock()

	for _, fn := range handlers {
		fn(update, origin)
	}
}

// MergeUpdates folds updates into a single update holding the winning write
// of every key they mention.
func MergeUpdates(updates ...[]byte) ([]byte, error) {
	winners := make(map[string]entry)
	for _, u := range updates {
		entries, err := decodeEntries(u)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if cur, ok := winners[e.key]; ok && !e.supersedes(cur) {
				continue
			}
			winners[e.key] = e
		}
	}

	merged := make([]entry, 0, len(winners))
	for _, e := range winners {
		merged = append(merged, e)
	}
	return encodeEntries(merged), nil
}
