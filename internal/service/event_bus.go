// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"sync"
	"sync/atomic"

	"github.com/MKhiriev/weave-sync/internal/crdt"
)

// UpdateEvent reports a document change made by another peer or by a
// loaded snapshot.
type UpdateEvent struct {
	Update  []byte
	Origin  crdt.Origin
	Version uint64
}

// SaveEvent reports a snapshot written to the store.
type SaveEvent struct {
	Version uint64
	Size    int
}

type subscriber[T any] struct {
	fn        func(T)
	active    atomic.Bool
	cancelled atomic.Bool
}

// eventBus fans values out to subscribers in registration order. Emission
// happens on the session loop only.
type eventBus[T any] struct {
	mu   sync.Mutex
	subs []*subscriber[T]
}

// add registers fn. An inactive subscriber is skipped by emit until it is
// activated.
func (b *eventBus[T]) add(fn func(T), active bool) (*subscriber[T], func()) {
	s := &subscriber[T]{fn: fn}
	s.active.Store(active)

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return s, func() { b.remove(s) }
}

func (b *eventBus[T]) subscribe(fn func(T)) func() {
	_, cancel := b.add(fn, true)
	return cancel
}

func (b *eventBus[T]) remove(s *subscriber[T]) {
	s.cancelled.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.subs {
		if cur == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *eventBus[T]) emit(v T) {
	b.mu.Lock()
	subs := make([]*subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if s.active.Load() && !s.cancelled.Load() {
			s.fn(v)
		}
	}
}

func (b *eventBus[T]) clear() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.cancelled.Store(true)
	}
}

func (b *eventBus[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
