// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service holds the business logic of weave-sync: the per-document
// sync session run by every peer and the snapshot service behind the relay's
// REST API.
package service

import (
	"context"

	"github.com/MKhiriev/weave-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// Session is the surface of a running sync session seen by hosts such as
// the terminal UI. *SyncProvider implements it.
type Session interface {
	State() models.ConnectionState
	Synced() bool
	Version() uint64

	OnUpdate(fn func(UpdateEvent)) (cancel func())
	OnStatus(fn func(models.StatusEvent)) (cancel func())
	OnSave(fn func(SaveEvent)) (cancel func())
	OnSynced(fn func(bool)) (cancel func())

	Save(ctx context.Context) error
	Destroy()
	Done() <-chan struct{}
}

// SnapshotService serves stored document snapshots to remote peers.
type SnapshotService interface {
	Load(ctx context.Context, key models.DocumentKey) (models.Snapshot, error)
	Update(ctx context.Context, key models.DocumentKey, content []byte) (int64, error)
	Insert(ctx context.Context, key models.DocumentKey, content []byte) error
}

// AppInfoService reports build metadata of the running binary.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) models.AppBuildInfo
}
