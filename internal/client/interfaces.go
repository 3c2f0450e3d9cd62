// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"

	"github.com/MKhiriev/weave-sync/internal/crdt"
	"github.com/MKhiriev/weave-sync/internal/presence"
	"github.com/MKhiriev/weave-sync/internal/service"
)

// Client defines the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run starts the client application and blocks until exit.
	Run() error
}

// UI drives a running session. Run returns when the user quits or ctx is
// done.
type UI interface {
	Run(ctx context.Context, session *Session) error
}

// Session is what a UI gets to work with.
type Session struct {
	Provider *service.SyncProvider
	Doc      *crdt.Map
	Identity presence.Identity
	Channel  string
}
