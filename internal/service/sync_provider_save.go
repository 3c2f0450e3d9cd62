// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/models"
)

// Save writes the full document state to the snapshot store and waits for
// the result. A save requested while another one runs is folded into a
// single follow-up write. ctx bounds the wait only; the write itself is
// bound to the session and aborted by Destroy.
//
// Until the stored snapshot has been merged on the current connection Save
// fails with ErrNotSynced and writes nothing.
func (p *SyncProvider) Save(ctx context.Context) error {
	if p.destroyed.Load() {
		return ErrDestroyed
	}

	select {
	case err := <-p.requestSave():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *SyncProvider) requestSave() <-chan error {
	done := make(chan error, 1)

	p.saveMu.Lock()
	p.saveWaiters = append(p.saveWaiters, done)
	if p.saving {
		p.saveMu.Unlock()
		return done
	}
	p.saving = true
	p.saveMu.Unlock()

	go p.runSaves()
	return done
}

// runSaves writes snapshots until no caller is waiting. Only one runSaves
// is active per session.
func (p *SyncProvider) runSaves() {
	for {
		p.saveMu.Lock()
		waiters := p.saveWaiters
		p.saveWaiters = nil
		if len(waiters) == 0 || p.destroyed.Load() {
			p.saving = false
			p.saveMu.Unlock()
			for _, w := range waiters {
				w <- ErrDestroyed
			}
			return
		}
		p.saveMu.Unlock()

		err := p.save(p.ctx)
		for _, w := range waiters {
			w <- err
		}
	}
}

// save upserts the encoded state: update first, insert when no row was
// touched, and update again when a concurrent insert won the race.
func (p *SyncProvider) save(ctx context.Context) error {
	if p.State() != models.Synced {
		p.logger.Debug().Str("state", p.State().String()).Msg("snapshot not loaded, save skipped")
		return ErrNotSynced
	}
	p.dirty.Store(false)

	version := p.Version()
	content := p.doc.EncodeState()
	key := p.opts.DocumentKey

	err := p.upsert(ctx, key, content)
	if err != nil {
		p.logger.Err(err).Str("func", "SyncProvider.save").Uint64("version", version).Msg("error saving snapshot")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	p.logger.Debug().Uint64("version", version).Int("size", len(content)).Msg("snapshot saved")
	p.post(func() { p.saves.emit(SaveEvent{Version: version, Size: len(content)}) })
	return nil
}

func (p *SyncProvider) upsert(ctx context.Context, key models.DocumentKey, content []byte) error {
	rows, err := p.snapshots.UpdateSnapshot(ctx, key, content)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	err = p.snapshots.InsertSnapshot(ctx, key, content)
	if !errors.Is(err, store.ErrSnapshotAlreadyExists) {
		return err
	}
	_, err = p.snapshots.UpdateSnapshot(ctx, key, content)
	return err
}
