// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Workers owns a set of scheduled jobs. Once stopped it refuses new jobs
// and none of its jobs run again.
type Workers struct {
	clock clockwork.Clock

	mu      sync.Mutex
	stopped bool
	tasks   map[*task]struct{}

	wg sync.WaitGroup
}

// New creates an empty group driven by clock. A nil clock means the real one.
func New(clock clockwork.Clock) *Workers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Workers{
		clock: clock,
		tasks: make(map[*task]struct{}),
	}
}

// Clock returns the clock the group schedules on.
func (w *Workers) Clock() clockwork.Clock {
	return w.clock
}

// Every calls fn every interval until the task or the group is stopped.
func (w *Workers) Every(interval time.Duration, fn func()) Task {
	ticker := w.clock.NewTicker(interval)
	done := make(chan struct{})
	t := &task{group: w, cancel: func() {
		ticker.Stop()
		close(done)
	}}
	if !w.add(t) {
		ticker.Stop()
		return stoppedTask{}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				if t.active() {
					fn()
				}
			}
		}
	}()
	return t
}

// After calls fn once after d.
func (w *Workers) After(d time.Duration, fn func()) Task {
	t := &task{group: w}
	timer := w.clock.AfterFunc(d, func() {
		if !t.finish() {
			return
		}
		fn()
	})
	t.cancel = func() { timer.Stop() }
	if !w.add(t) {
		timer.Stop()
		return stoppedTask{}
	}
	return t
}

// Debounce returns a Debouncer that calls fn once d has passed since the
// latest Trigger.
func (w *Workers) Debounce(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{workers: w, delay: d, fn: fn}
}

// Stop cancels every job of the group. It does not wait for running jobs;
// use Wait for that. Stop is idempotent.
func (w *Workers) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	tasks := make([]*task, 0, len(w.tasks))
	for t := range w.tasks {
		tasks = append(tasks, t)
	}
	w.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
}

// Stopped reports whether Stop has been called.
func (w *Workers) Stopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// Wait blocks until every periodic job goroutine has exited. It must not
// be called from inside a job.
func (w *Workers) Wait() {
	w.wg.Wait()
}

// Len returns the number of active jobs.
func (w *Workers) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

func (w *Workers) add(t *task) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	if !t.done.Load() {
		w.tasks[t] = struct{}{}
	}
	return true
}

func (w *Workers) forget(t *task) {
	w.mu.Lock()
	delete(w.tasks, t)
	w.mu.Unlock()
}

type task struct {
	group  *Workers
	done   atomic.Bool
	cancel func()
}

func (t *task) active() bool {
	return !t.done.Load() && !t.group.Stopped()
}

// finish marks a one-shot task as run. It reports false when the task was
// stopped first.
func (t *task) finish() bool {
	if t.group.Stopped() || !t.done.CompareAndSwap(false, true) {
		return false
	}
	t.group.forget(t)
	return true
}

func (t *task) Stop() bool {
	if !t.done.CompareAndSwap(false, true) {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.group.forget(t)
	return true
}

type stoppedTask struct{}

func (stoppedTask) Stop() bool { return false }
