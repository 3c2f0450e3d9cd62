// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tui is the terminal editor of a peer. It shows the fields of the
// shared document, the connection state, the number of connected users and
// which field each remote user is looking at.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/weave-sync/internal/awareness"
	"github.com/MKhiriev/weave-sync/internal/client"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/service"
	"github.com/MKhiriev/weave-sync/models"
)

type TUI struct {
	logger *logger.Logger
}

var _ client.UI = (*TUI)(nil)

func New(logger *logger.Logger) (*TUI, error) {
	return &TUI{logger: logger}, nil
}

// Run shows the editor until the user quits or ctx is done.
func (t *TUI) Run(ctx context.Context, session *client.Session) error {
	changes, stop := watch(session)
	defer stop()

	model := newEditorModel(ctx, session, changes)
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		t.logger.Info().Msg("editor closed by shutdown")
		return nil
	}
	return err
}

// watch funnels every session observer into one coalescing channel. The
// observers run on the session loop and must not block, so a pending
// notification absorbs the ones that follow.
func watch(session *client.Session) (<-chan struct{}, func()) {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	p := session.Provider
	cancels := []func(){
		p.OnStatus(func(models.StatusEvent) { notify() }),
		p.OnUpdate(func(service.UpdateEvent) { notify() }),
		p.OnSave(func(service.SaveEvent) { notify() }),
		p.OnSynced(func(bool) { notify() }),
		p.Presence().Observe(func(int, models.PresenceState) { notify() }),
		p.Awareness().Observe(func(awareness.Change, awareness.Origin) { notify() }),
	}

	return changes, func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}
