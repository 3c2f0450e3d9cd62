// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/weave-sync/internal/adapter"
	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/presence"
	"github.com/MKhiriev/weave-sync/internal/store"
)

const httpStoreTimeout = 10 * time.Second

// StoreFactory opens the snapshot store of a peer. The closer releases it.
type StoreFactory func(ctx context.Context, cfg *config.ClientConfig, logger *logger.Logger) (store.SnapshotRepository, io.Closer, error)

// ChannelFactory opens the broadcast channel of a peer.
type ChannelFactory func(cfg *config.ClientConfig, identity presence.Identity, clock clockwork.Clock, logger *logger.Logger) (channel.Channel, io.Closer, error)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// OpenStore builds the store selected by cfg.Storage.Driver. The http
// driver talks to the relay's snapshot API with the peer token.
func OpenStore(ctx context.Context, cfg *config.ClientConfig, logger *logger.Logger) (store.SnapshotRepository, io.Closer, error) {
	if cfg.Storage.Driver == config.DriverHTTP {
		s, err := adapter.NewHTTPSnapshotStore(cfg.Storage.HTTPURL, cfg.Identity.Token, httpStoreTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser, nil
	}

	storages, err := store.NewStorages(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	return storages.Snapshots, storages, nil
}

// OpenChannel builds the channel selected by cfg.Channel.Transport.
func OpenChannel(cfg *config.ClientConfig, identity presence.Identity, clock clockwork.Clock, logger *logger.Logger) (channel.Channel, io.Closer, error) {
	switch cfg.Channel.Transport {
	case config.TransportWebsocket, "":
		settings := adapter.DefaultWebsocketSettings()
		if cfg.Channel.ReconnectTimeout > 0 {
			settings.ReconnectTimeout = cfg.Channel.ReconnectTimeout
		}
		ch, err := adapter.NewWebsocketChannel(cfg.Channel.RelayURL, cfg.Session.Channel, identity.Key, cfg.Identity.Token, settings, logger)
		if err != nil {
			return nil, nil, err
		}
		return ch, nopCloser, nil

	case config.TransportNATS:
		conn, err := adapter.ConnectNATS(cfg.Channel.NATSURL, "weave-"+identity.Key, cfg.Channel.ReconnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		ch, err := adapter.NewNATSChannel(conn, cfg.Session.Channel, identity.Key, adapter.DefaultNATSSettings(), clock, logger)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return ch, closerFunc(func() error {
			conn.Close()
			return nil
		}), nil
	}

	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, cfg.Channel.Transport)
}
