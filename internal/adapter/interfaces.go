// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter connects a sync session to the outside world.
//
// It ships the network implementations of [channel.Channel] ([WebsocketChannel]
// talking to the relay server, [NATSChannel] talking to a NATS broker) and
// [HTTPSnapshotStore], a [store.SnapshotRepository] backed by the relay's
// snapshot REST API.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] regardless of transport
// (e.g. [store.ErrSnapshotNotFound] for 404, [ErrUnauthorized] for 401).
package adapter

import (
	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/store"
)

var (
	_ channel.Channel          = (*WebsocketChannel)(nil)
	_ channel.Channel          = (*NATSChannel)(nil)
	_ store.SnapshotRepository = (*HTTPSnapshotStore)(nil)
)
