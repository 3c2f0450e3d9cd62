// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/models"
)

func TestNATSSubject(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{prefix: "weave", name: "doc-room", want: "weave.doc-room"},
		{prefix: "weave", name: "a.b*c>d e", want: "weave.a_b_c_d_e"},
		{prefix: "", name: "room", want: "room"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, natsSubject(tt.prefix, tt.name))
	}
}

func TestNATSPresence_Heartbeat(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newNATSPresence(clock, 15*time.Second)
	alice := models.PresenceEntry{User: models.User{ID: "alice"}}

	diff, changed := p.heartbeat("c1", "alice", alice)
	require.True(t, changed)
	assert.Equal(t, "c1", diff.Joins["alice"][0].PeerKey)
	assert.Empty(t, diff.Leaves)

	_, changed = p.heartbeat("c1", "alice", alice)
	assert.False(t, changed, "a renewal is not a join")

	renamed := models.PresenceEntry{User: models.User{ID: "alice", Name: "Alice"}}
	diff, changed = p.heartbeat("c1", "alice", renamed)
	require.True(t, changed)
	assert.Equal(t, "Alice", diff.Joins["alice"][0].User.Name)
	assert.Equal(t, "", diff.Leaves["alice"][0].User.Name)
}

func TestNATSPresence_LeaveAndExpire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := newNATSPresence(clock, 15*time.Second)

	p.heartbeat("self", "me", models.PresenceEntry{})
	p.heartbeat("c1", "alice", models.PresenceEntry{})
	p.heartbeat("c2", "bob", models.PresenceEntry{})

	diff, changed := p.leave("c1")
	require.True(t, changed)
	assert.Contains(t, diff.Leaves, "alice")
	_, changed = p.leave("c1")
	assert.False(t, changed)

	clock.Advance(10 * time.Second)
	_, changed = p.expire("self")
	assert.False(t, changed)

	clock.Advance(6 * time.Second)
	diff, changed = p.expire("self")
	require.True(t, changed)
	assert.Contains(t, diff.Leaves, "bob")
	assert.Equal(t, 1, p.len(), "own entry never expires")

	p.reset()
	assert.Zero(t, p.len())
}

func natsMsg(t *testing.T, subject string, env models.Envelope) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return &nats.Msg{Subject: subject, Data: data}
}

func TestNATSChannel_Handle(t *testing.T) {
	c, err := NewNATSChannel(nil, "room", "me", nil, clockwork.NewFakeClock(), logger.Nop())
	require.NoError(t, err)

	var (
		broadcasts [][]byte
		events     []models.PresenceEvent
		last       models.PresenceState
	)
	d := channel.NewDispatcher(channel.Handlers{
		OnBroadcast: func(_ models.Event, payload []byte) { broadcasts = append(broadcasts, payload) },
		OnPresence: func(e models.PresenceEvent, s models.PresenceState) {
			events = append(events, e)
			last = s
		},
	})
	presence := newNATSPresence(c.clock, c.settings.PresenceTimeout)

	broadcast := c.subject + "." + natsBroadcastSuffix
	presenceSubject := c.subject + "." + natsPresenceSuffix

	c.handle(d, presence, natsMsg(t, broadcast, models.Envelope{
		Type: models.EnvelopeBroadcast, Event: models.EventMessage, Payload: models.ByteArray{1}, Sender: "other",
	}))
	c.handle(d, presence, natsMsg(t, broadcast, models.Envelope{
		Type: models.EnvelopeBroadcast, Event: models.EventMessage, Payload: models.ByteArray{2}, Sender: c.id,
	}))
	c.handle(d, presence, &nats.Msg{Subject: broadcast, Data: []byte("{")})
	assert.Equal(t, [][]byte{{1}}, broadcasts, "own and malformed frames are skipped")

	c.handle(d, presence, natsMsg(t, presenceSubject, models.Envelope{
		Type: models.EnvelopeHeartbeat, Sender: "other", Key: "alice",
		Entry: &models.PresenceEntry{User: models.User{ID: "alice"}},
	}))
	require.NotEmpty(t, events)
	assert.Equal(t, models.PresenceJoin, events[0].Kind)
	assert.Len(t, last["alice"], 1)

	c.handle(d, presence, natsMsg(t, presenceSubject, models.Envelope{Type: models.EnvelopeUntrack, Sender: "other"}))
	assert.Empty(t, last)
	assert.Empty(t, d.State())
}

func TestNATSChannel_NotSubscribed(t *testing.T) {
	c, err := NewNATSChannel(nil, "room", "me", nil, nil, logger.Nop())
	require.NoError(t, err)

	assert.ErrorIs(t, c.Track(context.Background(), models.PresenceEntry{}), channel.ErrNotSubscribed)
	assert.ErrorIs(t, c.Unsubscribe(), channel.ErrNotSubscribed)
	assert.Empty(t, c.PresenceState())
	assert.Equal(t, "room", c.Name())

	_, err = NewNATSChannel(nil, "", "me", nil, nil, logger.Nop())
	assert.ErrorIs(t, err, channel.ErrEmptyRoom)
}

// fakeNATSConn is an in-process natsConn whose flush result is switchable.
type fakeNATSConn struct {
	mu        sync.Mutex
	flushErr  error
	connected bool
	published []string
}

func (f *fakeNATSConn) ChanSubscribe(string, chan *nats.Msg) (*nats.Subscription, error) {
	return &nats.Subscription{}, nil
}

func (f *fakeNATSConn) Publish(subject string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, subject)
	return nil
}

func (f *fakeNATSConn) FlushTimeout(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushErr
}

func (f *fakeNATSConn) FlushWithContext(context.Context) error { return nil }

func (f *fakeNATSConn) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeNATSConn) SetDisconnectErrHandler(nats.ConnErrHandler) {}
func (f *fakeNATSConn) SetReconnectHandler(nats.ConnHandler)       {}
func (f *fakeNATSConn) SetClosedHandler(nats.ConnHandler)          {}

func (f *fakeNATSConn) set(flushErr error, connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushErr = flushErr
	f.connected = connected
}

func TestNATSChannel_RetriesAfterFailedFlush(t *testing.T) {
	conn := &fakeNATSConn{}
	flushErr := errors.New("flush timeout")
	conn.set(flushErr, false)

	clock := clockwork.NewFakeClock()
	settings := DefaultNATSSettings()
	c, err := newNATSChannel(conn, "room", "me", settings, clock, logger.Nop())
	require.NoError(t, err)

	statuses := make(chan models.ChannelStatus, 8)
	require.NoError(t, c.Subscribe(channel.Handlers{
		OnStatus: func(s models.ChannelStatus, _ error) { statuses <- s },
	}))
	defer func() { _ = c.Unsubscribe() }()

	next := func() models.ChannelStatus {
		t.Helper()
		select {
		case s := <-statuses:
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("no channel status")
			return ""
		}
	}

	require.Equal(t, models.StatusTimedOut, next())

	// still disconnected: the tick does not retry
	clock.Advance(settings.HeartbeatInterval)
	assert.Never(t, func() bool { return len(statuses) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	conn.set(nil, true)
	clock.Advance(settings.HeartbeatInterval)
	assert.Equal(t, models.StatusSubscribed, next())

	conn.mu.Lock()
	assert.Contains(t, conn.published, c.subject+"."+natsPresenceSuffix)
	conn.mu.Unlock()
}
