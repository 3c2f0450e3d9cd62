// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package awareness

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeLog struct {
	changes []Change
	origins []Origin
}

func observe(a *Awareness) *changeLog {
	log := &changeLog{}
	a.Observe(func(c Change, o Origin) {
		log.changes = append(log.changes, c)
		log.origins = append(log.origins, o)
	})
	return log
}

func TestSetLocalState_AddUpdateRemove(t *testing.T) {
	a := New(1, clockwork.NewFakeClock())
	log := observe(a)

	a.SetLocalState(State{"name": "Ann"})
	a.SetLocalStateField("color", "#f00")
	a.SetLocalState(nil)
	a.SetLocalState(nil)

	require.Len(t, log.changes, 3)
	assert.Equal(t, Change{Added: []uint64{1}}, log.changes[0])
	assert.Equal(t, Change{Updated: []uint64{1}}, log.changes[1])
	assert.Equal(t, Change{Removed: []uint64{1}}, log.changes[2])
	assert.Equal(t, []Origin{OriginLocal, OriginLocal, OriginLocal}, log.origins)
	assert.Nil(t, a.LocalState())
}

func TestLocalState_IsCopied(t *testing.T) {
	a := New(1, nil)
	state := State{"cursor": map[string]any{"line": 1}}
	a.SetLocalState(state)
	state["cursor"] = "changed"

	got := a.LocalState()
	assert.Equal(t, map[string]any{"line": float64(1)}, got["cursor"])
}

func TestEncodeApply_RoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := New(1, clock), New(2, clock)
	a.SetLocalState(State{"name": "Ann", "color": "#f00"})

	log := observe(b)
	require.NoError(t, b.ApplyUpdate(a.EncodeUpdate(1), OriginRemote))

	assert.Equal(t, State{"name": "Ann", "color": "#f00"}, b.States()[1])
	assert.Equal(t, []uint64{1}, b.RemoteClients())
	require.Len(t, log.changes, 1)
	assert.Equal(t, Change{Added: []uint64{1}}, log.changes[0])
	assert.Equal(t, OriginRemote, log.origins[0])

	// stale or duplicate updates are ignored
	old := a.EncodeUpdate(1)
	a.SetLocalStateField("name", "Anna")
	require.NoError(t, b.ApplyUpdate(a.EncodeUpdate(1), OriginRemote))
	require.NoError(t, b.ApplyUpdate(old, OriginRemote))
	assert.Equal(t, "Anna", b.States()[1]["name"])
}

func TestApplyUpdate_RemovalPropagates(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := New(1, clock), New(2, clock)
	a.SetLocalState(State{"name": "Ann"})
	require.NoError(t, b.ApplyUpdate(a.EncodeUpdate(1), OriginRemote))

	a.RemoveStates([]uint64{1}, OriginLocal)
	log := observe(b)
	require.NoError(t, b.ApplyUpdate(a.EncodeUpdate(1), OriginRemote))

	assert.Empty(t, b.RemoteClients())
	require.Len(t, log.changes, 1)
	assert.Equal(t, []uint64{1}, log.changes[0].Removed)
}

func TestApplyUpdate_LocalStateIsNotRemovedRemotely(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := New(1, clock), New(2, clock)
	a.SetLocalState(State{"name": "Ann"})
	require.NoError(t, b.ApplyUpdate(a.EncodeUpdate(1), OriginRemote))

	// b believes a left and relays the removal back
	b.RemoveStates([]uint64{1}, OriginRemote)
	removal := encodeUpdate([]record{{client: 1, clock: 1}})
	require.NoError(t, a.ApplyUpdate(removal, OriginRemote))

	assert.Equal(t, "Ann", a.LocalState()["name"])

	// the bumped clock makes the next announcement win on b
	require.NoError(t, b.ApplyUpdate(a.EncodeUpdate(1), OriginRemote))
	assert.Equal(t, "Ann", b.States()[1]["name"])
}

func TestApplyUpdate_Malformed(t *testing.T) {
	a := New(1, nil)

	for name, payload := range map[string][]byte{
		"empty":          nil,
		"huge count":     {0xff, 0x01},
		"truncated json": encodeUpdate([]record{{client: 2, clock: 1, state: State{"a": 1}}})[:6],
		"not an object":  append([]byte{1, 2, 1, 1}, '5'),
		"trailing bytes": append(encodeUpdate([]record{{client: 2, clock: 1}}), 0, 0, 0),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, a.ApplyUpdate(payload, OriginRemote), ErrMalformedUpdate)
		})
	}
	assert.Empty(t, a.States())
}

func TestCheckOutdated(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, b := New(1, clock), New(2, clock)
	a.SetLocalState(State{"name": "Ann"})
	b.SetLocalState(State{"name": "Bob"})
	require.NoError(t, b.ApplyUpdate(a.EncodeUpdate(1), OriginRemote))

	log := observe(b)

	clock.Advance(OutdatedTimeout / 2)
	b.CheckOutdated()
	require.Len(t, log.changes, 1, "local state renewed")
	assert.Equal(t, Change{Updated: []uint64{2}}, log.changes[0])
	assert.Equal(t, []uint64{1}, b.RemoteClients())

	clock.Advance(OutdatedTimeout / 2)
	b.CheckOutdated()
	require.Len(t, log.changes, 3, "renewed again, then the silent peer dropped")
	assert.Equal(t, Change{Updated: []uint64{2}}, log.changes[1])
	assert.Equal(t, Change{Removed: []uint64{1}}, log.changes[2])
	assert.Equal(t, OriginTimeout, log.origins[2])
	assert.Empty(t, b.RemoteClients())
	assert.Equal(t, "Bob", b.LocalState()["name"])
}

func TestObserve_Cancel(t *testing.T) {
	a := New(1, nil)
	calls := 0
	cancel := a.Observe(func(Change, Origin) { calls++ })

	a.SetLocalState(State{})
	cancel()
	cancel()
	a.SetLocalState(State{"x": 1})

	assert.Equal(t, 1, calls)
}

func TestChange(t *testing.T) {
	c := Change{Added: []uint64{1}, Updated: []uint64{2}, Removed: []uint64{3}}
	assert.Equal(t, []uint64{1, 2, 3}, c.Clients())
	assert.False(t, c.Empty())
	assert.True(t, Change{}.Empty())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(State{"n": 1}, State{"n": 1.0}))
	assert.False(t, Equal(State{"n": 1}, State{"n": 2}))
	assert.True(t, Equal(nil, nil))
}

func TestOrigin_String(t *testing.T) {
	assert.Equal(t, "timeout", OriginTimeout.String())
	assert.Equal(t, "disconnect", OriginDisconnect.String())
	assert.Equal(t, "unknown", Origin(9).String())
}
