// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crdt defines the replicated document contract used by the sync
// layer and ships Map, a last-writer-wins map that satisfies it.
//
// Every update a Document produces or accepts is an opaque binary delta.
// Deltas merge commutatively and idempotently: applying any subset of them,
// in any order and any number of times, yields the same state as applying
// each of them once. A full-state encoding is itself a valid delta, so
// receivers never need to tell snapshots and incremental updates apart.
package crdt
