// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventually = time.Second

func blockUntil(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), eventually)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func TestNew_NilClockUsesRealClock(t *testing.T) {
	w := New(nil)
	require.NotNil(t, w.Clock())
}

func TestWorkers_Every_RunsOnEachTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)
	defer w.Stop()

	var calls atomic.Int64
	w.Every(time.Second, func() { calls.Add(1) })
	blockUntil(t, clock, 1)

	for i := 1; i <= 3; i++ {
		clock.Advance(time.Second)
		want := int64(i)
		require.Eventually(t, func() bool { return calls.Load() == want }, eventually, time.Millisecond)
	}
}

func TestWorkers_Every_StopPreventsFurtherRuns(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)

	var calls atomic.Int64
	task := w.Every(time.Second, func() { calls.Add(1) })
	blockUntil(t, clock, 1)

	assert.True(t, task.Stop())
	assert.False(t, task.Stop())

	clock.Advance(5 * time.Second)
	w.Wait()
	assert.Zero(t, calls.Load())
	assert.Zero(t, w.Len())
}

func TestWorkers_After_RunsOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)

	var calls atomic.Int64
	w.After(time.Second, func() { calls.Add(1) })

	clock.Advance(999 * time.Millisecond)
	assert.Zero(t, calls.Load())

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, eventually, time.Millisecond)

	clock.Advance(time.Hour)
	assert.Equal(t, int64(1), calls.Load())
	require.Eventually(t, func() bool { return w.Len() == 0 }, eventually, time.Millisecond)
}

func TestWorkers_After_Stop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)

	var calls atomic.Int64
	task := w.After(time.Second, func() { calls.Add(1) })

	assert.True(t, task.Stop())
	clock.Advance(time.Second)
	assert.Zero(t, calls.Load())
}

func TestWorkers_Stop_CancelsEverything(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)

	var calls atomic.Int64
	w.Every(time.Second, func() { calls.Add(1) })
	w.After(time.Second, func() { calls.Add(1) })
	w.Debounce(time.Second, func() { calls.Add(1) }).Trigger()
	blockUntil(t, clock, 3)
	assert.Equal(t, 3, w.Len())

	w.Stop()
	w.Stop()
	assert.True(t, w.Stopped())
	assert.Zero(t, w.Len())

	clock.Advance(time.Minute)
	w.Wait()
	assert.Zero(t, calls.Load())
}

func TestWorkers_StoppedGroupRefusesNewTasks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)
	w.Stop()

	var calls atomic.Int64
	assert.False(t, w.Every(time.Second, func() { calls.Add(1) }).Stop())
	assert.False(t, w.After(time.Second, func() { calls.Add(1) }).Stop())

	clock.Advance(time.Minute)
	assert.Zero(t, calls.Load())
	assert.Zero(t, w.Len())
}

func TestWorkers_StopFromInsideTask(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)

	var calls atomic.Int64
	w.Every(time.Second, func() {
		calls.Add(1)
		w.Stop()
	})
	blockUntil(t, clock, 1)

	clock.Advance(time.Second)
	require.Eventually(t, w.Stopped, eventually, time.Millisecond)
	clock.Advance(time.Second)
	w.Wait()
	assert.Equal(t, int64(1), calls.Load())
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)
	defer w.Stop()

	var calls atomic.Int64
	d := w.Debounce(time.Second, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		clock.Advance(500 * time.Millisecond)
	}
	assert.Zero(t, calls.Load())

	clock.Advance(500 * time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, eventually, time.Millisecond)

	clock.Advance(time.Minute)
	assert.Equal(t, int64(1), calls.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := New(clock)

	var calls atomic.Int64
	d := w.Debounce(time.Second, func() { calls.Add(1) })

	assert.False(t, d.Stop())
	d.Trigger()
	assert.True(t, d.Stop())

	clock.Advance(time.Minute)
	assert.Zero(t, calls.Load())
}
