// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package channel defines the broadcast channel a sync session talks
// through and ships an in-memory implementation of it.
//
// A channel carries two kinds of traffic: best-effort broadcasts (update
// deltas and awareness updates) that are delivered to every other
// subscriber, and presence, the set of entries tracked by the connected
// peers. Delivery is ordered per connection but may drop on disconnect.
package channel

import (
	"context"

	"github.com/MKhiriev/weave-sync/models"
)

//go:generate mockgen -source=channel.go -destination=../mock/channel_mock.go -package=mock

// Handlers receives everything a channel reports after Subscribe.
//
// Implementations call the handlers from a single goroutine per
// subscription, in the order events arrived. Nil handlers are skipped.
type Handlers struct {
	// OnStatus reports connection status changes. err is non-nil for
	// StatusChannelError and may be set for StatusTimedOut.
	OnStatus func(status models.ChannelStatus, err error)

	// OnBroadcast delivers a broadcast sent by another subscriber.
	OnBroadcast func(event models.Event, payload []byte)

	// OnPresence delivers a presence change together with the full
	// presence state after the change.
	OnPresence func(event models.PresenceEvent, state models.PresenceState)
}

// Channel is a named pub/sub channel with presence.
type Channel interface {
	// Name returns the channel (room) name.
	Name() string

	// Subscribe starts the subscription. Its outcome is reported through
	// h.OnStatus; a returned error means the attempt could not start.
	Subscribe(h Handlers) error

	// Send broadcasts payload under event to the other subscribers.
	Send(ctx context.Context, event models.Event, payload []byte) error

	// Track publishes entry as this subscriber's presence.
	Track(ctx context.Context, entry models.PresenceEntry) error

	// Untrack withdraws this subscriber's presence.
	Untrack(ctx context.Context) error

	// PresenceState returns a copy of the current presence state.
	PresenceState() models.PresenceState

	// Unsubscribe ends the subscription. No handler runs after it returns.
	Unsubscribe() error
}
