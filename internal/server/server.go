// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/handler"
	"github.com/MKhiriev/weave-sync/internal/logger"
)

type server struct {
	httpServer *httpServer
	logger     *logger.Logger
}

func NewServer(handlers *handler.Handlers, cfg config.Server, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if handlers == nil || handlers.HTTP == nil || cfg.HTTPAddress == "" {
		return nil, errNoServersAreCreated
	}

	return &server{
		httpServer: newHTTPServer(handlers.HTTP.Init(), cfg, logger),
		logger:     logger,
	}, nil
}

func (s *server) RunServer() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	if err := s.run(ctx); err != nil {
		s.logger.Err(err).Msg("error running server")
	}
}

func (s *server) Shutdown() {
	s.httpServer.Shutdown()
}

// run serves until ctx is done.
func (s *server) run(ctx context.Context) error {
	served, err := s.start()
	if err != nil {
		return err
	}

	<-ctx.Done()
	s.Shutdown()
	<-served

	s.logger.Info().Msg("server shutdown gracefully")
	return nil
}

// start binds the listen address and serves in the background. The returned
// channel is closed once serving stops.
func (s *server) start() (<-chan struct{}, error) {
	if err := s.httpServer.listen(); err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.httpServer.server.Addr, err)
	}

	served := make(chan struct{})
	go func() {
		defer close(served)
		s.logger.Info().Str("address", s.httpServer.addr()).Msg("launching HTTP server")
		s.httpServer.RunServer()
	}()
	return served, nil
}
