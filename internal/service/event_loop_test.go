// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoop_RunsInOrder(t *testing.T) {
	l := newEventLoop()
	defer l.close()

	got := make(chan int, 100)
	for i := 0; i < 100; i++ {
		require.True(t, l.post(func() { got <- i }))
	}

	for i := 0; i < 100; i++ {
		assert.Equal(t, i, <-got)
	}
}

func TestEventLoop_PostFromTask(t *testing.T) {
	l := newEventLoop()
	defer l.close()

	done := make(chan struct{})
	l.post(func() {
		l.post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested task did not run")
	}
}

func TestEventLoop_CloseDiscardsQueue(t *testing.T) {
	l := newEventLoop()

	release := make(chan struct{})
	var ran atomic.Int32
	l.post(func() { <-release })
	l.post(func() { ran.Add(1) })

	l.close()
	close(release)
	<-l.done

	assert.Zero(t, ran.Load())
	assert.False(t, l.post(func() { ran.Add(1) }))
	l.close()
}
