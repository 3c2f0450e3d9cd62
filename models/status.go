// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// ConnectionState is the lifecycle state of a sync session.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Synced
	Errored
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Synced:
		return "synced"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// ChannelStatus is a discrete status reported by a broadcast channel through
// its subscribe callback.
type ChannelStatus string

const (
	StatusSubscribed   ChannelStatus = "SUBSCRIBED"
	StatusChannelError ChannelStatus = "CHANNEL_ERROR"
	StatusTimedOut     ChannelStatus = "TIMED_OUT"
	StatusClosed       ChannelStatus = "CLOSED"
)

// StatusEvent is published by a sync session on every state transition.
type StatusEvent struct {
	State ConnectionState
	Err   error
}
