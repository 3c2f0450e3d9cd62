// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"sync"
	"time"
)

// Debouncer collapses a burst of triggers into a single call.
type Debouncer struct {
	workers *Workers
	delay   time.Duration
	fn      func()

	mu      sync.Mutex
	pending Task
}

// Trigger (re)starts the delay. Only the last trigger of a burst leads to
// a call.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = d.workers.After(d.delay, d.fn)
}

// Stop drops a pending call, if any.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		return false
	}
	stopped := d.pending.Stop()
	d.pending = nil
	return stopped
}
