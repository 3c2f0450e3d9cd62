// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/handler"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/service"
	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/models"
)

func newTestServer(t *testing.T, addr string) *server {
	t.Helper()
	log := logger.Nop()

	services, err := service.NewServices(
		&store.Storages{Snapshots: store.NewMemorySnapshotRepository()},
		models.NewAppBuildInfo("v0.0.1", "", ""),
		log,
	)
	require.NoError(t, err)

	cfg := &config.RelayConfig{Server: config.Server{HTTPAddress: addr, RequestTimeout: 5 * time.Second}}
	handlers, err := handler.NewHandlers(services, channel.NewHub(log), cfg, log)
	require.NoError(t, err)

	srv, err := NewServer(handlers, cfg.Server, log)
	require.NoError(t, err)
	return srv.(*server)
}

func TestNewServer_NoHandlers(t *testing.T) {
	_, err := NewServer(nil, config.Server{HTTPAddress: ":0"}, logger.Nop())
	assert.ErrorIs(t, err, errNoServersAreCreated)

	_, err = NewServer(&handler.Handlers{}, config.Server{HTTPAddress: ":0"}, logger.Nop())
	assert.ErrorIs(t, err, errNoServersAreCreated)
}

func TestServer_ServesUntilShutdown(t *testing.T) {
	s := newTestServer(t, "127.0.0.1:0")

	served, err := s.start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.httpServer.addr() + "/api/version")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.Shutdown()
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunStopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
}

func TestServer_BusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := newTestServer(t, ln.Addr().String())

	err = s.run(context.Background())
	assert.Error(t, err)
}
