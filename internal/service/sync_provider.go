// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MKhiriev/weave-sync/internal/awareness"
	"github.com/MKhiriev/weave-sync/internal/channel"
	"github.com/MKhiriev/weave-sync/internal/crdt"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/presence"
	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/internal/workers"
	"github.com/MKhiriev/weave-sync/models"
)

const destroySendTimeout = time.Second

// SyncProvider keeps one replicated document in sync with the other peers
// on a broadcast channel and with its stored snapshot.
//
// Channel callbacks, timer firings and document updates are handled one at
// a time on the session's event loop. Observers registered with the On
// methods are called from that loop and must not block.
type SyncProvider struct {
	opts      Options
	doc       crdt.Document
	channel   channel.Channel
	snapshots store.SnapshotRepository
	awareness *awareness.Awareness
	presence  *presence.Tracker
	workers   *workers.Workers
	saveTimer *workers.Debouncer
	loop      *eventLoop
	logger    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	synced    atomic.Bool
	version   atomic.Uint64
	destroyed atomic.Bool
	// dirty is set by local edits not yet written by a save.
	dirty atomic.Bool

	// loop-owned
	lastErr       error
	epoch         uint64
	tracked       bool
	queue         [][]byte
	pendingRemote [][]byte

	saveMu      sync.Mutex
	saving      bool
	saveWaiters []chan error

	cancelDoc       func()
	cancelAwareness func()

	updates  eventBus[UpdateEvent]
	statuses eventBus[models.StatusEvent]
	saves    eventBus[SaveEvent]
	syncs    eventBus[bool]
}

var _ Session = (*SyncProvider)(nil)

// NewSyncProvider starts a session for doc on ch, persisted through
// snapshots. The channel is subscribed before NewSyncProvider returns;
// options below the interval floors fail with ErrConfig and leave ch
// untouched.
func NewSyncProvider(doc crdt.Document, ch channel.Channel, snapshots store.SnapshotRepository, opts Options) (*SyncProvider, error) {
	if doc == nil || ch == nil || snapshots == nil {
		return nil, fmt.Errorf("%w: document, channel and snapshot store are required", ErrConfig)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	aw := opts.Awareness
	if aw == nil {
		aw = awareness.New(doc.ClientID(), opts.Clock)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &SyncProvider{
		opts:      opts,
		doc:       doc,
		channel:   ch,
		snapshots: snapshots,
		awareness: aw,
		presence:  presence.NewTracker(),
		workers:   workers.New(opts.Clock),
		loop:      newEventLoop(),
		logger:    opts.Logger.ForSession(opts.ChannelName, opts.DocumentKey.String()),
		ctx:       ctx,
		cancel:    cancel,
	}
	p.state.Store(int32(models.Disconnected))

	p.saveTimer = p.workers.Debounce(SaveDebounce, func() {
		if p.destroyed.Load() {
			return
		}
		p.requestSave()
	})
	if !opts.DisableBatch {
		p.workers.Every(opts.BatchInterval, func() { p.post(p.flush) })
	}
	if !opts.DisableResync {
		p.workers.Every(opts.ResyncInterval, func() { p.post(p.resync) })
	}
	p.workers.Every(awareness.CheckInterval, func() { p.post(p.awareness.CheckOutdated) })

	p.cancelDoc = doc.Observe(p.onDocumentUpdate)
	p.cancelAwareness = aw.Observe(p.onAwarenessChange)

	p.state.Store(int32(models.Connecting))
	p.post(func() { p.transition(models.Connecting, nil) })
	err := ch.Subscribe(channel.Handlers{
		OnStatus:    p.onChannelStatus,
		OnBroadcast: p.onChannelBroadcast,
		OnPresence:  p.onChannelPresence,
	})
	if err != nil {
		p.logger.Err(err).Str("func", "NewSyncProvider").Msg("error subscribing channel")
		p.onChannelStatus(models.StatusChannelError, err)
	}

	return p, nil
}

// State returns the current connection state.
func (p *SyncProvider) State() models.ConnectionState {
	return models.ConnectionState(p.state.Load())
}

// Synced reports whether the document has caught up with the channel since
// the last connect.
func (p *SyncProvider) Synced() bool {
	return p.synced.Load()
}

// Version counts local deltas and applied updates.
func (p *SyncProvider) Version() uint64 {
	return p.version.Load()
}

func (p *SyncProvider) Document() crdt.Document {
	return p.doc
}

func (p *SyncProvider) Awareness() *awareness.Awareness {
	return p.awareness
}

// Presence returns the tracker fed by the channel's presence events. Its
// observers run on the session loop.
func (p *SyncProvider) Presence() *presence.Tracker {
	return p.presence
}

// OnUpdate registers fn for document changes applied from the channel or
// from a loaded snapshot.
func (p *SyncProvider) OnUpdate(fn func(UpdateEvent)) func() {
	return p.updates.subscribe(fn)
}

// OnStatus registers fn for state transitions. fn first receives the state
// current at the time it starts observing.
func (p *SyncProvider) OnStatus(fn func(models.StatusEvent)) func() {
	s, cancel := p.statuses.add(fn, false)
	p.post(func() {
		if s.cancelled.Load() {
			return
		}
		s.active.Store(true)
		fn(models.StatusEvent{State: p.State(), Err: p.lastErr})
	})
	return cancel
}

// OnSave registers fn for successful snapshot writes.
func (p *SyncProvider) OnSave(fn func(SaveEvent)) func() {
	return p.saves.subscribe(fn)
}

// OnSynced registers fn for changes of the synced flag. fn first receives
// the current value.
func (p *SyncProvider) OnSynced(fn func(bool)) func() {
	s, cancel := p.syncs.add(fn, false)
	p.post(func() {
		if s.cancelled.Load() {
			return
		}
		s.active.Store(true)
		fn(p.synced.Load())
	})
	return cancel
}

// Done is closed once the session loop has exited after Destroy.
func (p *SyncProvider) Done() <-chan struct{} {
	return p.loop.done
}

// Destroy ends the session: timers stop, observers are dropped, the local
// awareness entry is cleared and its removal broadcast, presence is
// untracked and the channel unsubscribed. No observer is called once
// Destroy returns, except one already running. Destroy may be called from
// any goroutine, more than once, including from inside an observer.
func (p *SyncProvider) Destroy() {
	if !p.destroyed.CompareAndSwap(false, true) {
		return
	}

	p.workers.Stop()
	p.cancelDoc()
	p.cancelAwareness()

	p.updates.clear()
	p.statuses.clear()
	p.saves.clear()
	p.syncs.clear()

	ctx, cancel := context.WithTimeout(context.Background(), destroySendTimeout)
	defer cancel()

	connected := p.connected()
	if p.awareness.LocalState() != nil {
		p.awareness.SetLocalState(nil)
		if connected {
			update := p.awareness.EncodeUpdate(p.awareness.ClientID())
			if err := p.channel.Send(ctx, models.EventAwareness, update); err != nil {
				p.logger.Err(err).Str("func", "SyncProvider.Destroy").Msg("error broadcasting awareness removal")
			}
		}
	}
	if p.opts.Presence != nil {
		if err := p.channel.Untrack(ctx); err != nil && !errors.Is(err, channel.ErrNotSubscribed) {
			p.logger.Err(err).Str("func", "SyncProvider.Destroy").Msg("error untracking presence")
		}
	}
	if err := p.channel.Unsubscribe(); err != nil && !errors.Is(err, channel.ErrNotSubscribed) {
		p.logger.Err(err).Str("func", "SyncProvider.Destroy").Msg("error unsubscribing channel")
	}

	p.cancel()
	p.loop.close()
	p.state.Store(int32(models.Disconnected))
	p.synced.Store(false)

	p.saveMu.Lock()
	waiters := p.saveWaiters
	p.saveWaiters = nil
	p.saveMu.Unlock()
	for _, w := range waiters {
		w <- ErrDestroyed
	}

	p.logger.Debug().Msg("sync session destroyed")
}

func (p *SyncProvider) post(fn func()) bool {
	if p.destroyed.Load() {
		return false
	}
	return p.loop.post(func() {
		if p.destroyed.Load() {
			return
		}
		fn()
	})
}

func (p *SyncProvider) connected() bool {
	switch p.State() {
	case models.Connected, models.Synced:
		return true
	default:
		return false
	}
}

func (p *SyncProvider) transition(state models.ConnectionState, err error) {
	p.state.Store(int32(state))
	p.lastErr = err
	p.logger.Debug().Str("state", state.String()).AnErr("reason", err).Msg("session state changed")
	p.statuses.emit(models.StatusEvent{State: state, Err: err})
}

func (p *SyncProvider) setSynced(v bool) {
	if p.synced.Swap(v) != v {
		p.syncs.emit(v)
	}
}

// channel callbacks

func (p *SyncProvider) onChannelStatus(status models.ChannelStatus, err error) {
	p.post(func() { p.handleStatus(status, err) })
}

func (p *SyncProvider) onChannelBroadcast(event models.Event, payload []byte) {
	data := append([]byte(nil), payload...)
	p.post(func() { p.handleBroadcast(event, data) })
}

func (p *SyncProvider) onChannelPresence(event models.PresenceEvent, state models.PresenceState) {
	snapshot := state.Clone()
	p.post(func() {
		if p.connected() {
			p.presence.Handle(event, snapshot)
		}
	})
}

func (p *SyncProvider) handleStatus(status models.ChannelStatus, err error) {
	switch status {
	case models.StatusSubscribed:
		if p.connected() {
			return
		}
		p.epoch++
		p.transition(models.Connected, nil)
		p.track()
		p.loadSnapshot(p.epoch)
	case models.StatusChannelError:
		if err == nil {
			err = errors.New("channel error")
		}
		p.transition(models.Errored, err)
		p.disconnect(err)
	case models.StatusTimedOut, models.StatusClosed:
		p.disconnect(err)
	default:
		p.logger.Warn().Str("status", string(status)).Msg("unknown channel status")
	}
}

func (p *SyncProvider) track() {
	if p.tracked || p.opts.Presence == nil {
		return
	}
	if err := p.channel.Track(p.ctx, *p.opts.Presence); err != nil {
		p.logger.Err(err).Str("func", "SyncProvider.track").Msg("error tracking presence")
		return
	}
	p.tracked = true
}

func (p *SyncProvider) disconnect(err error) {
	if p.State() == models.Disconnected {
		return
	}
	p.epoch++
	p.pendingRemote = nil

	p.state.Store(int32(models.Disconnected))
	if others := p.awareness.RemoteClients(); len(others) > 0 {
		p.awareness.RemoveStates(others, awareness.OriginDisconnect)
	}
	p.presence.Reset()
	p.setSynced(false)
	p.transition(models.Disconnected, err)
}

// loadSnapshot reads the stored snapshot off the loop and applies it on the
// loop, unless the connection it was started for is gone.
func (p *SyncProvider) loadSnapshot(epoch uint64) {
	go func() {
		snapshot, err := p.snapshots.LoadSnapshot(p.ctx, p.opts.DocumentKey)
		p.post(func() { p.finishLoad(epoch, snapshot, err) })
	}()
}

func (p *SyncProvider) finishLoad(epoch uint64, snapshot models.Snapshot, err error) {
	if epoch != p.epoch || p.State() != models.Connected {
		return
	}

	switch {
	case errors.Is(err, store.ErrSnapshotNotFound):
		p.logger.Debug().Msg("no stored snapshot")
	case err != nil:
		p.logger.Err(err).Str("func", "SyncProvider.finishLoad").Msg("error loading snapshot")
	case snapshot.IsEmpty():
	default:
		p.apply(snapshot.Content, crdt.OriginResync)
	}

	p.transition(models.Synced, nil)
	p.setSynced(true)
	if p.dirty.Load() {
		p.saveTimer.Trigger()
	}

	pending := p.pendingRemote
	p.pendingRemote = nil
	for _, update := range pending {
		p.apply(update, crdt.OriginRemote)
	}

	p.flush()
	if p.awareness.LocalState() != nil {
		p.send(models.EventAwareness, p.awareness.EncodeUpdate(p.awareness.ClientID()))
	}
}

func (p *SyncProvider) handleBroadcast(event models.Event, payload []byte) {
	if !p.connected() {
		p.logger.Debug().Str("event", string(event)).Msg("dropping broadcast while disconnected")
		return
	}

	switch event {
	case models.EventMessage:
		if len(payload) == 0 {
			p.logger.Warn().Msg("dropping empty message")
			return
		}
		if p.State() == models.Connected {
			p.pendingRemote = append(p.pendingRemote, payload)
			return
		}
		if p.apply(payload, crdt.OriginRemote) {
			p.setSynced(true)
		}
	case models.EventAwareness:
		if err := p.awareness.ApplyUpdate(payload, awareness.OriginRemote); err != nil {
			p.logger.Warn().Err(err).Msg("dropping malformed awareness update")
		}
	default:
		p.logger.Debug().Str("event", string(event)).Msg("ignoring unknown event")
	}
}

// apply merges update into the document and reports success.
func (p *SyncProvider) apply(update []byte, origin crdt.Origin) bool {
	if err := p.doc.ApplyUpdate(update, origin); err != nil {
		p.logger.Warn().Err(err).Str("origin", origin.String()).Msg("dropping malformed update")
		return false
	}
	p.updates.emit(UpdateEvent{Update: update, Origin: origin, Version: p.Version()})
	return true
}

// document and awareness observers

func (p *SyncProvider) onDocumentUpdate(update []byte, origin crdt.Origin) {
	p.version.Add(1)
	if origin != crdt.OriginLocal || p.destroyed.Load() {
		return
	}
	// Edits made before the stored snapshot is merged are saved once it is.
	p.dirty.Store(true)
	if p.State() == models.Synced {
		p.saveTimer.Trigger()
	}
	p.post(func() { p.enqueue(update) })
}

// onAwarenessChange broadcasts local changes of this client's own state.
// States of other clients are never re-broadcast from here.
func (p *SyncProvider) onAwarenessChange(change awareness.Change, origin awareness.Origin) {
	if origin != awareness.OriginLocal {
		return
	}
	self := p.awareness.ClientID()
	if !slices.Contains(change.Clients(), self) {
		return
	}
	p.post(func() {
		if p.connected() {
			p.send(models.EventAwareness, p.awareness.EncodeUpdate(self))
		}
	})
}

// outbound

func (p *SyncProvider) enqueue(update []byte) {
	p.queue = append(p.queue, update)
	if p.opts.DisableBatch {
		p.flush()
	}
}

// flush merges queued local deltas into one message. While disconnected
// the queue is compacted and kept for the next connection.
func (p *SyncProvider) flush() {
	if len(p.queue) == 0 {
		return
	}

	merged := p.queue[0]
	if len(p.queue) > 1 {
		var err error
		merged, err = p.doc.MergeUpdates(p.queue...)
		if err != nil {
			p.logger.Err(err).Str("func", "SyncProvider.flush").Int("deltas", len(p.queue)).Msg("error merging queued deltas")
			p.queue = nil
			return
		}
	}

	if p.State() != models.Synced {
		p.queue = [][]byte{merged}
		return
	}
	p.queue = nil
	p.send(models.EventMessage, merged)
}

func (p *SyncProvider) resync() {
	if p.State() != models.Synced {
		return
	}
	p.send(models.EventMessage, p.doc.EncodeState())
}

func (p *SyncProvider) send(event models.Event, payload []byte) {
	if err := p.channel.Send(p.ctx, event, payload); err != nil {
		p.logger.Err(err).Str("func", "SyncProvider.send").Str("event", string(event)).Msg("error broadcasting")
	}
}
