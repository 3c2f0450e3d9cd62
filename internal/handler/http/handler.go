// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/service"
)

type Handler struct {
	services *service.Services
	hub      *channel.Hub
	identity config.Identity
	upgrader websocket.Upgrader
	bridge   BridgeSettings

	logger *logger.Logger
}

func NewHandler(services *service.Services, hub *channel.Hub, identity config.Identity, logger *logger.Logger) *Handler {
	logger.Info().Bool("token_checks", identity.TokenSignKey != "").Msg("http handler created")
	return &Handler{
		services: services,
		hub:      hub,
		identity: identity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// peers are native clients; browsers are not served
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bridge: DefaultBridgeSettings(),
		logger: logger,
	}
}
