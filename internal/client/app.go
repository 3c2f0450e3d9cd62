// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/weave-sync/internal/awareness"
	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/internal/crdt"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/presence"
	"github.com/MKhiriev/weave-sync/internal/service"
)

const exitSaveTimeout = 5 * time.Second

type App struct {
	cfg *config.ClientConfig
	ui  UI

	openStore   StoreFactory
	openChannel ChannelFactory
	clock       clockwork.Clock

	logger *logger.Logger
}

// Option overrides a dependency of App.
type Option func(*App)

func WithStoreFactory(f StoreFactory) Option     { return func(a *App) { a.openStore = f } }
func WithChannelFactory(f ChannelFactory) Option { return func(a *App) { a.openChannel = f } }
func WithClock(c clockwork.Clock) Option         { return func(a *App) { a.clock = c } }

func NewApp(cfg *config.ClientConfig, ui UI, logger *logger.Logger, opts ...Option) (*App, error) {
	if ui == nil {
		return nil, ErrNilUI
	}

	a := &App{
		cfg:         cfg,
		ui:          ui,
		openStore:   OpenStore,
		openChannel: OpenChannel,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run runs the session until the UI exits or the process is signalled.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	return a.RunContext(ctx)
}

// RunContext is Run bound to ctx instead of process signals.
func (a *App) RunContext(ctx context.Context) error {
	identity, err := presence.ResolveIdentity(a.cfg.Identity)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	a.logger.Info().Str("key", identity.Key).Bool("guest", identity.Guest).Msg("identity resolved")

	snapshots, storeCloser, err := a.openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer closeLogged(storeCloser, "snapshot store", a.logger)

	ch, channelCloser, err := a.openChannel(a.cfg, identity, a.clock, a.logger)
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer closeLogged(channelCloser, "channel", a.logger)

	doc := crdt.NewRandomMap()
	aw := awareness.New(doc.ClientID(), a.clock)
	aw.SetLocalState(awareness.State{
		"user": map[string]any{
			"id":    identity.User.ID,
			"name":  identity.User.Name,
			"color": identity.User.Color,
		},
	})

	entry := identity.Entry()
	opts := service.OptionsFromConfig(a.cfg.Session)
	opts.Awareness = aw
	opts.Presence = &entry
	opts.Clock = a.clock
	opts.Logger = a.logger

	provider, err := service.NewSyncProvider(doc, ch, snapshots, opts)
	if err != nil {
		return fmt.Errorf("start sync session: %w", err)
	}
	defer a.finish(provider)

	return a.ui.Run(ctx, &Session{
		Provider: provider,
		Doc:      doc,
		Identity: identity,
		Channel:  a.cfg.Session.Channel,
	})
}

// finish saves a session that holds any state and destroys it. A session
// that never merged the stored snapshot is not saved.
func (a *App) finish(provider *service.SyncProvider) {
	defer provider.Destroy()

	if provider.Version() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), exitSaveTimeout)
	defer cancel()
	err := provider.Save(ctx)
	switch {
	case errors.Is(err, service.ErrNotSynced):
		a.logger.Warn().Msg("document was never loaded from the store, exit save skipped")
	case err != nil:
		a.logger.Err(err).Str("func", "*App.finish").Msg("error saving document on exit")
	}
}

func closeLogged(c io.Closer, what string, logger *logger.Logger) {
	if err := c.Close(); err != nil {
		logger.Err(err).Str("resource", what).Msg("error closing")
	}
}
