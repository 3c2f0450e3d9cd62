// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/service"
)

func TestNewHandlers(t *testing.T) {
	hub := channel.NewHub(logger.Nop())
	services := &service.Services{}

	tests := []struct {
		name     string
		cfg      *config.RelayConfig
		services *service.Services
		hub      *channel.Hub
		wantErr  error
	}{
		{
			name:     "http address set",
			cfg:      &config.RelayConfig{Server: config.Server{HTTPAddress: ":8080"}},
			services: services,
			hub:      hub,
		},
		{
			name:     "no address",
			cfg:      &config.RelayConfig{},
			services: services,
			hub:      hub,
			wantErr:  errNoHandlersAreCreated,
		},
		{
			name:     "no hub",
			cfg:      &config.RelayConfig{Server: config.Server{HTTPAddress: ":8080"}},
			services: services,
			wantErr:  errMissingDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandlers(tt.services, tt.hub, tt.cfg, logger.Nop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h.HTTP)
		})
	}
}
