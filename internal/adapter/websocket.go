// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/models"
)

// WebsocketSettings tunes a WebsocketChannel. PingPeriod must stay below
// the relay's read timeout.
type WebsocketSettings struct {
	HandshakeTimeout time.Duration
	ReconnectTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingPeriod       time.Duration
	SendBuffer       int
	MaxMessageSize   int64
}

func DefaultWebsocketSettings() *WebsocketSettings {
	return &WebsocketSettings{
		HandshakeTimeout: 5 * time.Second,
		ReconnectTimeout: 3 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      15 * time.Second,
		PingPeriod:       5 * time.Second,
		SendBuffer:       64,
		MaxMessageSize:   16 << 20,
	}
}

// WebsocketChannel is a Channel served by the relay at /ws/{channel}.
//
// Frames are JSON models.Envelope values. The relay answers a new connection
// with the room's presence state; that first frame is reported as
// StatusSubscribed. A lost connection is reported as StatusChannelError and
// retried after ReconnectTimeout until Unsubscribe. The tracked presence
// entry is re-sent on every reconnect.
type WebsocketChannel struct {
	name     string
	endpoint string
	header   http.Header
	dialer   *websocket.Dialer
	settings WebsocketSettings

	logger *logger.Logger

	mu         sync.Mutex
	dispatcher *channel.Dispatcher
	conn       *wsConn
	tracked    *models.PresenceEntry
	cancel     context.CancelFunc
	done       chan struct{}
}

// wsConn is the outbound side of one live connection.
type wsConn struct {
	send   chan []byte
	closed chan struct{}
}

// NewWebsocketChannel returns a channel for room name on the relay at
// relayURL (ws, wss, http or https). key is announced as the presence key;
// token, when set, is sent as a bearer token and takes precedence on the
// relay.
func NewWebsocketChannel(relayURL, name, key, token string, settings *WebsocketSettings, logger *logger.Logger) (*WebsocketChannel, error) {
	if name == "" {
		return nil, channel.ErrEmptyRoom
	}
	if settings == nil {
		settings = DefaultWebsocketSettings()
	}

	endpoint, err := websocketEndpoint(relayURL, name, key)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if token = strings.TrimSpace(token); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return &WebsocketChannel{
		name:     name,
		endpoint: endpoint,
		header:   header,
		dialer:   &websocket.Dialer{HandshakeTimeout: settings.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		settings: *settings,
		logger:   logger.ForComponent("websocket_channel"),
	}, nil
}

func websocketEndpoint(relayURL, name, key string) (string, error) {
	raw := strings.TrimSpace(relayURL)
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRelayURL, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRelayURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidRelayURL)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(name)
	u.RawPath = ""
	q := u.Query()
	if key != "" {
		q.Set("peer_key", key)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *WebsocketChannel) Name() string {
	return c.name
}

// Subscribe starts connecting in the background.
func (c *WebsocketChannel) Subscribe(h channel.Handlers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher != nil {
		return channel.ErrAlreadySubscribed
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.dispatcher = channel.NewDispatcher(h)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, c.dispatcher, c.done)
	return nil
}

// run owns the subscription: every handler call happens here.
func (c *WebsocketChannel) run(ctx context.Context, d *channel.Dispatcher, done chan struct{}) {
	defer close(done)

	for {
		err := c.connect(ctx, d)
		d.Reset()
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn().Err(err).Str("channel", c.name).Dur("retry_in", c.settings.ReconnectTimeout).Msg("relay connection lost")
		d.Status(models.StatusChannelError, err)

		timer := time.NewTimer(c.settings.ReconnectTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *WebsocketChannel) connect(ctx context.Context, d *channel.Dispatcher) error {
	ws, resp, err := c.dialer.DialContext(ctx, c.endpoint, c.header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return fmt.Errorf("dial relay: %w", err)
	}

	conn := &wsConn{
		send:   make(chan []byte, c.settings.SendBuffer),
		closed: make(chan struct{}),
	}
	connCtx, cancel := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.write(connCtx, ws, conn)
	}()

	err = c.read(ws, conn, d)

	c.detach(conn)
	cancel()
	<-writerDone
	return err
}

func (c *WebsocketChannel) read(ws *websocket.Conn, conn *wsConn, d *channel.Dispatcher) error {
	ws.SetReadLimit(c.settings.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	})

	subscribed := false
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("read relay frame: %w", err)
		}
		_ = ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))

		var env models.Envelope
		if err = json.Unmarshal(data, &env); err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed relay frame")
			continue
		}

		if !subscribed {
			subscribed = true
			c.attach(conn)
			d.Status(models.StatusSubscribed, nil)
		}
		d.Dispatch(env)
	}
}

// write drains conn.send into ws and pings the relay. On cancellation it
// flushes what is queued and closes the connection cleanly.
func (c *WebsocketChannel) write(ctx context.Context, ws *websocket.Conn, conn *wsConn) {
	defer ws.Close()

	ping := time.NewTicker(c.settings.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case msg := <-conn.send:
					if c.writeMessage(ws, msg) != nil {
						return
					}
				default:
					_ = ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(c.settings.WriteTimeout))
					return
				}
			}
		case msg := <-conn.send:
			if err := c.writeMessage(ws, msg); err != nil {
				c.logger.Warn().Err(err).Msg("error writing relay frame")
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.settings.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (c *WebsocketChannel) writeMessage(ws *websocket.Conn, msg []byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
	return ws.WriteMessage(websocket.TextMessage, msg)
}

// attach makes conn the live connection and re-tracks presence on it.
func (c *WebsocketChannel) attach(conn *wsConn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	if c.tracked != nil {
		entry := *c.tracked
		data, _ := json.Marshal(models.Envelope{Type: models.EnvelopeTrack, Entry: &entry})
		select {
		case conn.send <- data:
		default:
			c.logger.Warn().Msg("outbound queue full, presence not re-tracked")
		}
	}
}

func (c *WebsocketChannel) detach(conn *wsConn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	close(conn.closed)
}

func (c *WebsocketChannel) enqueue(ctx context.Context, env models.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return channel.ErrNotSubscribed
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	timer := time.NewTimer(c.settings.WriteTimeout)
	defer timer.Stop()

	select {
	case conn.send <- data:
		return nil
	case <-conn.closed:
		return channel.ErrNotSubscribed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrSendTimeout
	}
}

func (c *WebsocketChannel) Send(ctx context.Context, event models.Event, payload []byte) error {
	return c.enqueue(ctx, models.Envelope{
		Type:    models.EnvelopeBroadcast,
		Event:   event,
		Payload: models.ByteArray(payload),
	})
}

func (c *WebsocketChannel) Track(ctx context.Context, entry models.PresenceEntry) error {
	c.mu.Lock()
	c.tracked = &entry
	c.mu.Unlock()
	return c.enqueue(ctx, models.Envelope{Type: models.EnvelopeTrack, Entry: &entry})
}

func (c *WebsocketChannel) Untrack(ctx context.Context) error {
	c.mu.Lock()
	c.tracked = nil
	c.mu.Unlock()
	return c.enqueue(ctx, models.Envelope{Type: models.EnvelopeUntrack})
}

func (c *WebsocketChannel) PresenceState() models.PresenceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil {
		return make(models.PresenceState)
	}
	return c.dispatcher.State()
}

// Unsubscribe closes the connection after flushing queued frames and waits
// for the subscription goroutine to exit.
func (c *WebsocketChannel) Unsubscribe() error {
	c.mu.Lock()
	if c.dispatcher == nil {
		c.mu.Unlock()
		return channel.ErrNotSubscribed
	}
	cancel, done := c.cancel, c.done
	c.dispatcher = nil
	c.tracked = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	<-done
	return nil
}
