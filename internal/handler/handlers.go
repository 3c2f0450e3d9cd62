// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import (
	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/handler/http"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/service"
)

// Handlers groups the relay's transport handlers.
type Handlers struct {
	HTTP *http.Handler
}

// NewHandlers builds the HTTP handler serving the websocket relay and the
// snapshot REST API over hub.
func NewHandlers(services *service.Services, hub *channel.Hub, cfg *config.RelayConfig, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	if cfg.Server.HTTPAddress == "" {
		return nil, errNoHandlersAreCreated
	}
	if services == nil || hub == nil {
		return nil, errMissingDependency
	}

	return &Handlers{
		HTTP: http.NewHandler(services, hub, cfg.Identity, logger),
	}, nil
}
