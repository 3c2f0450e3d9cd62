// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crdt

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordUpdates collects every update doc reports with OriginLocal.
func recordUpdates(doc *Map) *[][]byte {
	var out [][]byte
	doc.Observe(func(update []byte, origin Origin) {
		if origin == OriginLocal {
			out = append(out, update)
		}
	})
	return &out
}

func TestMap_SetGetDelete(t *testing.T) {
	doc := NewMap(1)
	doc.Set("title", "draft")
	doc.Set("content", "# hello")

	v, ok := doc.Get("title")
	require.True(t, ok)
	assert.Equal(t, "draft", v)
	assert.Equal(t, []string{"content", "title"}, doc.Keys())

	doc.Delete("title")
	_, ok = doc.Get("title")
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"content": "# hello"}, doc.ToMap())
}

func TestMap_Observe_LocalOriginAndCancel(t *testing.T) {
	doc := NewMap(1)

	var origins []Origin
	cancel := doc.Observe(func(_ []byte, origin Origin) {
		origins = append(origins, origin)
	})

	doc.Set("a", "1")
	cancel()
	cancel()
	doc.Set("a", "2")

	assert.Equal(t, []Origin{OriginLocal}, origins)
}

func TestMap_ApplyUpdate_ReportsOrigin(t *testing.T) {
	src := NewMap(1)
	updates := recordUpdates(src)
	src.Set("a", "1")

	dst := NewMap(2)
	var got []Origin
	dst.Observe(func(_ []byte, origin Origin) { got = append(got, origin) })

	require.NoError(t, dst.ApplyUpdate((*updates)[0], OriginRemote))
	// a duplicate changes nothing and is not reported
	require.NoError(t, dst.ApplyUpdate((*updates)[0], OriginRemote))
	require.NoError(t, dst.ApplyUpdate(src.EncodeState(), OriginResync))

	assert.Equal(t, []Origin{OriginRemote}, got)
}

func TestMap_ApplyUpdate_Malformed(t *testing.T) {
	doc := NewMap(1)

	for _, payload := range [][]byte{
		{0x01, 0x02, 0x03},
		{0x0a, 0x05, 0x01},
		{0x0a, 0x02, 0x0a, 0x00}, // entry without a clock
		{0x48, 0x01},             // unknown fields only
	} {
		err := doc.ApplyUpdate(payload, OriginRemote)
		assert.ErrorIs(t, err, ErrMalformedUpdate)
	}
	assert.Empty(t, doc.Keys())
}

func TestMap_ApplyUpdate_EmptyIsNoop(t *testing.T) {
	doc := NewMap(1)
	called := false
	doc.Observe(func([]byte, Origin) { called = true })

	require.NoError(t, doc.ApplyUpdate(nil, OriginRemote))
	assert.False(t, called)
}

func TestMap_ConcurrentWritesConverge(t *testing.T) {
	a, b := NewMap(1), NewMap(2)
	ua, ub := recordUpdates(a), recordUpdates(b)

	a.Set("content", "from a")
	b.Set("content", "from b")

	require.NoError(t, a.ApplyUpdate((*ub)[0], OriginRemote))
	require.NoError(t, b.ApplyUpdate((*ua)[0], OriginRemote))

	assert.Equal(t, a.EncodeState(), b.EncodeState())
	v, _ := a.Get("content")
	assert.Equal(t, "from b", v, "equal clocks are ordered by client id")
}

func TestMap_DeleteIsNotResurrectedByStaleWrite(t *testing.T) {
	a, b := NewMap(1), NewMap(2)
	ua := recordUpdates(a)

	a.Set("k", "v")
	require.NoError(t, b.ApplyUpdate((*ua)[0], OriginRemote))
	a.Delete("k")

	require.NoError(t, b.ApplyUpdate((*ua)[1], OriginRemote))
	require.NoError(t, b.ApplyUpdate((*ua)[0], OriginRemote))

	_, ok := b.Get("k")
	assert.False(t, ok)
}

func TestMap_Convergence_AnyOrderWithDuplicates(t *testing.T) {
	peers := []*Map{NewMap(1), NewMap(2), NewMap(3)}
	logs := make([]*[][]byte, len(peers))
	for i, p := range peers {
		logs[i] = recordUpdates(p)
	}
	peers[0].Set("title", "one")
	peers[1].Set("title", "two")
	peers[2].Set("content", "body")
	peers[0].Set("content", "body 2")
	peers[1].Delete("content")
	peers[2].Set("tags", "go")

	var collected [][]byte
	for _, l := range logs {
		collected = append(collected, *l...)
	}
	collected = append(collected, collectAll(peers)...)

	rng := rand.New(rand.NewPCG(7, 11))
	var reference []byte
	for round := 0; round < 20; round++ {
		shuffled := append([][]byte(nil), collected...)
		shuffled = append(shuffled, collected[rng.IntN(len(collected))], collected[rng.IntN(len(collected))])
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		replica := NewMap(100 + uint64(round))
		for _, u := range shuffled {
			require.NoError(t, replica.ApplyUpdate(u, OriginRemote))
		}
		state := replica.EncodeState()
		if reference == nil {
			reference = state
			continue
		}
		assert.Equal(t, reference, state, "round %d diverged", round)
	}
}

// collectAll returns the full-state encodings of peers, each of which is a
// valid update.
func collectAll(peers []*Map) [][]byte {
	out := make([][]byte, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.EncodeState())
	}
	return out
}

func TestMergeUpdates_EqualsSequentialApply(t *testing.T) {
	src := NewMap(1)
	updates := recordUpdates(src)
	src.Set("a", "1")
	src.Set("b", "2")
	src.Set("a", "3")
	src.Delete("b")

	merged, err := src.MergeUpdates(*updates...)
	require.NoError(t, err)

	viaMerge := NewMap(2)
	require.NoError(t, viaMerge.ApplyUpdate(merged, OriginRemote))

	viaSequence := NewMap(3)
	for _, u := range *updates {
		require.NoError(t, viaSequence.ApplyUpdate(u, OriginRemote))
	}

	assert.Equal(t, viaSequence.EncodeState(), viaMerge.EncodeState())
	assert.Equal(t, src.EncodeState(), viaMerge.EncodeState())
}

func TestMergeUpdates_IsAssociative(t *testing.T) {
	a, b, c := NewMap(1), NewMap(2), NewMap(3)
	a.Set("k", "a")
	b.Set("k", "b")
	c.Set("x", "c")

	ab, err := MergeUpdates(a.EncodeState(), b.EncodeState())
	require.NoError(t, err)
	left, err := MergeUpdates(ab, c.EncodeState())
	require.NoError(t, err)

	bc, err := MergeUpdates(b.EncodeState(), c.EncodeState())
	require.NoError(t, err)
	right, err := MergeUpdates(a.EncodeState(), bc)
	require.NoError(t, err)

	assert.Equal(t, left, right)
}

func TestMergeUpdates_MalformedInput(t *testing.T) {
	_, err := MergeUpdates(NewMap(1).EncodeState(), []byte{0xff})
	assert.ErrorIs(t, err, ErrMalformedUpdate)
}

func TestMap_OlderSnapshotNeverRewinds(t *testing.T) {
	doc := NewMap(1)
	doc.Set("content", "v1")
	old := doc.EncodeState()
	doc.Set("content", "v2")

	require.NoError(t, doc.ApplyUpdate(old, OriginResync))
	v, _ := doc.Get("content")
	assert.Equal(t, "v2", v)
}

func TestMap_LocalClockAdvancesPastRemote(t *testing.T) {
	a, b := NewMap(1), NewMap(2)
	for i := 0; i < 5; i++ {
		a.Set("k", "a")
	}
	require.NoError(t, b.ApplyUpdate(a.EncodeState(), OriginRemote))
	b.Set("k", "b wins")

	require.NoError(t, a.ApplyUpdate(b.EncodeState(), OriginRemote))
	v, _ := a.Get("k")
	assert.Equal(t, "b wins", v)
}

func TestOrigin_String(t *testing.T) {
	assert.Equal(t, "local", OriginLocal.String())
	assert.Equal(t, "remote", OriginRemote.String())
	assert.Equal(t, "resync", OriginResync.String())
	assert.Equal(t, "unknown", Origin(42).String())
}
