// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"

	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/models"
)

const (
	natsBroadcastSuffix = "broadcast"
	natsPresenceSuffix  = "presence"
)

// NATSSettings tunes a NATSChannel.
type NATSSettings struct {
	// Prefix is the first subject token, e.g. "weave" for
	// weave.<channel>.broadcast.
	Prefix            string
	HeartbeatInterval time.Duration
	// PresenceTimeout drops a peer whose heartbeats stopped.
	PresenceTimeout time.Duration
	FlushTimeout    time.Duration
	Buffer          int
}

func DefaultNATSSettings() *NATSSettings {
	return &NATSSettings{
		Prefix:            "weave",
		HeartbeatInterval: 5 * time.Second,
		PresenceTimeout:   15 * time.Second,
		FlushTimeout:      5 * time.Second,
		Buffer:            256,
	}
}

// ConnectNATS dials the broker at url. The client library keeps
// reconnecting every reconnectWait; a NATSChannel reports the outages as
// status changes.
func ConnectNATS(url, clientName string, reconnectWait time.Duration) (*nats.Conn, error) {
	if reconnectWait <= 0 {
		reconnectWait = nats.DefaultReconnectWait
	}
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return conn, nil
}

// NATSChannel is a Channel over plain NATS subjects:
//
//	<prefix>.<channel>.broadcast  broadcast envelopes
//	<prefix>.<channel>.presence   heartbeats, untracks and sync requests
//
// Every frame carries the sender's connection id so a subscriber can skip
// its own messages. Presence is rebuilt locally from heartbeats; a new
// subscriber asks the others to announce themselves right away.
type NATSChannel struct {
	conn     natsConn
	name     string
	key      string
	id       string
	subject  string
	settings NATSSettings
	clock    clockwork.Clock

	logger *logger.Logger

	mu         sync.Mutex
	dispatcher *channel.Dispatcher
	sub        *nats.Subscription
	tracked    *models.PresenceEntry
	kick       chan struct{}
	cancel     context.CancelFunc
	done       chan struct{}
}

// natsConn is the part of *nats.Conn a NATSChannel uses.
type natsConn interface {
	ChanSubscribe(subject string, ch chan *nats.Msg) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	FlushWithContext(ctx context.Context) error
	IsConnected() bool
	SetDisconnectErrHandler(cb nats.ConnErrHandler)
	SetReconnectHandler(cb nats.ConnHandler)
	SetClosedHandler(cb nats.ConnHandler)
}

type natsStatus struct {
	status models.ChannelStatus
	err    error
}

// NewNATSChannel returns a channel for room name on conn. key is the
// presence key announced in heartbeats.
func NewNATSChannel(conn *nats.Conn, name, key string, settings *NATSSettings, clock clockwork.Clock, logger *logger.Logger) (*NATSChannel, error) {
	return newNATSChannel(conn, name, key, settings, clock, logger)
}

func newNATSChannel(conn natsConn, name, key string, settings *NATSSettings, clock clockwork.Clock, logger *logger.Logger) (*NATSChannel, error) {
	if name == "" {
		return nil, channel.ErrEmptyRoom
	}
	if settings == nil {
		settings = DefaultNATSSettings()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &NATSChannel{
		conn:     conn,
		name:     name,
		key:      key,
		id:       ulid.Make().String(),
		subject:  natsSubject(settings.Prefix, name),
		settings: *settings,
		clock:    clock,
		logger:   logger.ForComponent("nats_channel"),
	}, nil
}

// natsSubject builds the subject base for a channel, replacing characters
// that NATS treats as token separators or wildcards.
func natsSubject(prefix, name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, name)
	if prefix == "" {
		return clean
	}
	return prefix + "." + clean
}

func (c *NATSChannel) Name() string {
	return c.name
}

// Subscribe registers the subject subscription and starts the channel
// goroutine.
func (c *NATSChannel) Subscribe(h channel.Handlers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher != nil {
		return channel.ErrAlreadySubscribed
	}

	msgs := make(chan *nats.Msg, c.settings.Buffer)
	sub, err := c.conn.ChanSubscribe(c.subject+".*", msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}

	statuses := make(chan natsStatus, 8)
	c.conn.SetDisconnectErrHandler(func(_ *nats.Conn, err error) {
		c.pushStatus(statuses, natsStatus{status: models.StatusChannelError, err: err})
	})
	c.conn.SetReconnectHandler(func(_ *nats.Conn) {
		c.pushStatus(statuses, natsStatus{status: models.StatusSubscribed})
	})
	c.conn.SetClosedHandler(func(_ *nats.Conn) {
		c.pushStatus(statuses, natsStatus{status: models.StatusClosed})
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.dispatcher = channel.NewDispatcher(h)
	c.sub = sub
	c.kick = make(chan struct{}, 1)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, c.dispatcher, msgs, statuses, c.kick, c.done)
	return nil
}

func (c *NATSChannel) pushStatus(statuses chan natsStatus, s natsStatus) {
	select {
	case statuses <- s:
	default:
		c.logger.Warn().Str("status", string(s.status)).Msg("status queue full, dropping status")
	}
}

// run owns the subscription: handler calls and the presence table live
// here.
func (c *NATSChannel) run(ctx context.Context, d *channel.Dispatcher, msgs <-chan *nats.Msg, statuses <-chan natsStatus, kick <-chan struct{}, done chan struct{}) {
	defer close(done)

	presence := newNATSPresence(c.clock, c.settings.PresenceTimeout)
	ticker := c.clock.NewTicker(c.settings.HeartbeatInterval)
	defer ticker.Stop()

	online := false
	goOnline := func() {
		if err := c.conn.FlushTimeout(c.settings.FlushTimeout); err != nil {
			d.Status(models.StatusTimedOut, err)
			return
		}
		online = true
		d.Status(models.StatusSubscribed, nil)
		c.publishPresence(models.Envelope{Type: models.EnvelopeSyncRequest})
		c.heartbeat(d, presence)
	}
	goOnline()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-statuses:
			if s.status == models.StatusSubscribed {
				if !online {
					goOnline()
				}
				continue
			}
			online = false
			presence.reset()
			d.Reset()
			d.Status(s.status, s.err)
		case msg := <-msgs:
			if online {
				c.handle(d, presence, msg)
			}
		case <-kick:
			if online {
				c.heartbeat(d, presence)
			}
		case <-ticker.Chan():
			if !online {
				// a failed flush gets no reconnect event on a healthy conn
				if c.conn.IsConnected() {
					goOnline()
				}
				continue
			}
			c.heartbeat(d, presence)
			if diff, ok := presence.expire(c.id); ok {
				d.Dispatch(models.Envelope{Type: models.EnvelopePresenceDiff, Diff: &diff})
			}
		}
	}
}

func (c *NATSChannel) handle(d *channel.Dispatcher, presence *natsPresence, msg *nats.Msg) {
	var env models.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		c.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed nats frame")
		return
	}
	if env.Sender == c.id {
		return
	}

	switch {
	case strings.HasSuffix(msg.Subject, "."+natsBroadcastSuffix):
		if env.Type == models.EnvelopeBroadcast {
			d.Dispatch(env)
		}
	case strings.HasSuffix(msg.Subject, "."+natsPresenceSuffix):
		var (
			diff    models.PresenceDiff
			changed bool
		)
		switch env.Type {
		case models.EnvelopeHeartbeat:
			if env.Entry == nil {
				return
			}
			diff, changed = presence.heartbeat(env.Sender, env.Key, *env.Entry)
		case models.EnvelopeUntrack:
			diff, changed = presence.leave(env.Sender)
		case models.EnvelopeSyncRequest:
			c.heartbeat(d, presence)
		}
		if changed {
			d.Dispatch(models.Envelope{Type: models.EnvelopePresenceDiff, Diff: &diff})
		}
	}
}

// heartbeat announces the tracked entry and mirrors it into the local
// table, since a subscriber never receives its own frames.
func (c *NATSChannel) heartbeat(d *channel.Dispatcher, presence *natsPresence) {
	c.mu.Lock()
	tracked := c.tracked
	c.mu.Unlock()

	var (
		diff    models.PresenceDiff
		changed bool
	)
	if tracked == nil {
		diff, changed = presence.leave(c.id)
	} else {
		entry := *tracked
		c.publishPresence(models.Envelope{Type: models.EnvelopeHeartbeat, Key: c.key, Entry: &entry})
		diff, changed = presence.heartbeat(c.id, c.key, entry)
	}
	if changed {
		d.Dispatch(models.Envelope{Type: models.EnvelopePresenceDiff, Diff: &diff})
	}
}

func (c *NATSChannel) publishPresence(env models.Envelope) {
	if err := c.publish(natsPresenceSuffix, env); err != nil {
		c.logger.Warn().Err(err).Str("type", string(env.Type)).Msg("error publishing presence")
	}
}

func (c *NATSChannel) publish(suffix string, env models.Envelope) error {
	env.Sender = c.id
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return c.conn.Publish(c.subject+"."+suffix, data)
}

func (c *NATSChannel) subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatcher != nil
}

func (c *NATSChannel) Send(ctx context.Context, event models.Event, payload []byte) error {
	if !c.subscribed() {
		return channel.ErrNotSubscribed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.publish(natsBroadcastSuffix, models.Envelope{
		Type:    models.EnvelopeBroadcast,
		Event:   event,
		Payload: models.ByteArray(payload),
	})
}

// Track stores entry and announces it on the next heartbeat, which is
// triggered right away.
func (c *NATSChannel) Track(_ context.Context, entry models.PresenceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil {
		return channel.ErrNotSubscribed
	}
	c.tracked = &entry
	select {
	case c.kick <- struct{}{}:
	default:
	}
	return nil
}

// Untrack withdraws the entry and tells the other subscribers at once
// instead of letting it expire.
func (c *NATSChannel) Untrack(ctx context.Context) error {
	c.mu.Lock()
	if c.dispatcher == nil {
		c.mu.Unlock()
		return channel.ErrNotSubscribed
	}
	c.tracked = nil
	select {
	case c.kick <- struct{}{}:
	default:
	}
	c.mu.Unlock()

	if err := c.publish(natsPresenceSuffix, models.Envelope{Type: models.EnvelopeUntrack}); err != nil {
		return err
	}
	return c.conn.FlushWithContext(ctx)
}

func (c *NATSChannel) PresenceState() models.PresenceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil {
		return make(models.PresenceState)
	}
	return c.dispatcher.State()
}

// Unsubscribe drops the subject subscription and waits for the channel
// goroutine to exit. The NATS connection stays open; its owner closes it.
func (c *NATSChannel) Unsubscribe() error {
	c.mu.Lock()
	if c.dispatcher == nil {
		c.mu.Unlock()
		return channel.ErrNotSubscribed
	}
	sub, cancel, done := c.sub, c.cancel, c.done
	c.dispatcher = nil
	c.sub = nil
	c.tracked = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	c.conn.SetDisconnectErrHandler(nil)
	c.conn.SetReconnectHandler(nil)
	c.conn.SetClosedHandler(nil)

	err := sub.Unsubscribe()
	cancel()
	<-done
	if err != nil {
		return fmt.Errorf("unsubscribe %s: %w", c.subject, err)
	}
	return nil
}
