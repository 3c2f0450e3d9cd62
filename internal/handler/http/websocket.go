// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/utils"
	"github.com/MKhiriev/weave-sync/models"
)

// BridgeSettings tunes the websocket side of the relay.
type BridgeSettings struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingPeriod     time.Duration
	SendBuffer     int
	MaxMessageSize int64
}

func DefaultBridgeSettings() BridgeSettings {
	return BridgeSettings{
		WriteTimeout:   5 * time.Second,
		ReadTimeout:    30 * time.Second,
		PingPeriod:     10 * time.Second,
		SendBuffer:     256,
		MaxMessageSize: 16 << 20,
	}
}

// serveWebsocket joins the caller to the hub room named by {channel} and
// pumps envelopes both ways until either side hangs up.
func (h *Handler) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	room, err := url.PathUnescape(chi.URLParam(r, "channel"))
	if err != nil || strings.TrimSpace(room) == "" {
		http.Error(w, channel.ErrEmptyRoom.Error(), http.StatusBadRequest)
		return
	}
	key, _ := utils.GetPeerKeyFromContext(r.Context())

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Err(err).Str("func", "*Handler.serveWebsocket").Msg("websocket upgrade failed")
		return
	}

	conn := newBridgeConn(ws, h.bridge, log)
	member, err := h.hub.Join(room, key, conn)
	if err != nil {
		log.Err(err).Str("func", "*Handler.serveWebsocket").Msg("error joining room")
		conn.close()
		_ = ws.Close()
		return
	}
	log.Info().Str("room", room).Str("peer_key", key).Str("member", member.ID()).Msg("peer connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.writeLoop()
	}()

	err = conn.readLoop(member)
	member.Leave()
	conn.close()
	<-writerDone

	log.Info().Str("room", room).Str("member", member.ID()).AnErr("reason", err).Msg("peer disconnected")
}

// bridgeConn is one relay-side websocket connection. It is the hub sink of
// its member.
type bridgeConn struct {
	ws       *websocket.Conn
	settings BridgeSettings
	send     chan []byte
	done     chan struct{}
	once     sync.Once

	logger *logger.Logger
}

func newBridgeConn(ws *websocket.Conn, settings BridgeSettings, logger *logger.Logger) *bridgeConn {
	return &bridgeConn{
		ws:       ws,
		settings: settings,
		send:     make(chan []byte, settings.SendBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Deliver queues env for the peer. A peer that cannot keep up is
// disconnected; it resyncs after reconnecting.
func (c *bridgeConn) Deliver(env models.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Err(err).Str("func", "*bridgeConn.Deliver").Msg("error encoding envelope")
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.logger.Warn().Msg("peer outbound queue full, disconnecting")
		c.close()
	}
}

func (c *bridgeConn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *bridgeConn) readLoop(member *channel.Member) error {
	c.ws.SetReadLimit(c.settings.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	})
	c.ws.SetPingHandler(func(data string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		return c.ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.settings.WriteTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))

		var env models.Envelope
		if err = json.Unmarshal(data, &env); err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed peer frame")
			continue
		}

		switch env.Type {
		case models.EnvelopeBroadcast:
			err = member.Broadcast(env.Event, env.Payload)
		case models.EnvelopeTrack:
			if env.Entry != nil {
				err = member.Track(*env.Entry)
			}
		case models.EnvelopeUntrack:
			err = member.Untrack()
		case models.EnvelopeSyncRequest:
			err = member.SendState()
		case models.EnvelopeHeartbeat:
		default:
			c.logger.Debug().Str("type", string(env.Type)).Msg("ignoring unknown frame type")
		}
		if err != nil {
			return err
		}
	}
}

func (c *bridgeConn) writeLoop() {
	defer c.ws.Close()

	ping := time.NewTicker(c.settings.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.settings.WriteTimeout)); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.settings.WriteTimeout))
			return
		}
	}
}
