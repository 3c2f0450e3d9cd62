// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/weave-sync/internal/crdt"
	"github.com/MKhiriev/weave-sync/internal/logger"
	"github.com/MKhiriev/weave-sync/internal/mock"
	"github.com/MKhiriev/weave-sync/internal/service"
	"github.com/MKhiriev/weave-sync/internal/store"
	"github.com/MKhiriev/weave-sync/models"
)

func validSnapshot() []byte {
	m := crdt.NewMap(3)
	m.Set("title", "hello")
	return m.EncodeState()
}

func TestSnapshotService_Load(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockSnapshotRepository(ctrl)
	svc := service.NewSnapshotService(repo, logger.Nop())

	want := models.Snapshot{Key: docKey, Content: validSnapshot()}
	repo.EXPECT().LoadSnapshot(gomock.Any(), docKey).Return(want, nil)

	got, err := svc.Load(context.Background(), docKey)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotService_LoadNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockSnapshotRepository(ctrl)
	svc := service.NewSnapshotService(repo, logger.Nop())

	repo.EXPECT().LoadSnapshot(gomock.Any(), docKey).Return(models.Snapshot{}, store.ErrSnapshotNotFound)

	_, err := svc.Load(context.Background(), docKey)
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestSnapshotService_LoadRejectsEmptyKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := service.NewSnapshotService(mock.NewMockSnapshotRepository(ctrl), logger.Nop())

	_, err := svc.Load(context.Background(), models.DocumentKey{})
	assert.ErrorIs(t, err, service.ErrInvalidDocumentKey)
}

func TestSnapshotService_UpdateAndInsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockSnapshotRepository(ctrl)
	svc := service.NewSnapshotService(repo, logger.Nop())
	content := validSnapshot()

	repo.EXPECT().UpdateSnapshot(gomock.Any(), docKey, content).Return(int64(1), nil)
	repo.EXPECT().InsertSnapshot(gomock.Any(), docKey, content).Return(nil)

	rows, err := svc.Update(context.Background(), docKey, content)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, svc.Insert(context.Background(), docKey, content))
}

func TestSnapshotService_RepositoryErrorsPassThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockSnapshotRepository(ctrl)
	svc := service.NewSnapshotService(repo, logger.Nop())
	content := validSnapshot()
	dbErr := errors.New("db down")

	repo.EXPECT().UpdateSnapshot(gomock.Any(), docKey, content).Return(int64(0), dbErr)
	repo.EXPECT().InsertSnapshot(gomock.Any(), docKey, content).Return(store.ErrSnapshotAlreadyExists)

	_, err := svc.Update(context.Background(), docKey, content)
	assert.ErrorIs(t, err, dbErr)
	assert.ErrorIs(t, svc.Insert(context.Background(), docKey, content), store.ErrSnapshotAlreadyExists)
}

func TestSnapshotService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     models.DocumentKey
		content []byte
		wantErr error
	}{
		{name: "empty key", key: models.DocumentKey{}, content: validSnapshot(), wantErr: service.ErrInvalidDocumentKey},
		{name: "empty content", key: docKey, content: nil, wantErr: service.ErrEmptySnapshot},
		{name: "too large", key: docKey, content: make([]byte, service.MaxSnapshotSize+1), wantErr: service.ErrSnapshotTooLarge},
		{name: "truncated entry", key: docKey, content: []byte{0x0a, 0x05, 0x01}, wantErr: service.ErrMalformedSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// the repository must not be reached
			svc := service.NewSnapshotService(mock.NewMockSnapshotRepository(ctrl), logger.Nop())

			_, err := svc.Update(context.Background(), tt.key, tt.content)
			assert.ErrorIs(t, err, tt.wantErr)

			err = svc.Insert(context.Background(), tt.key, tt.content)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
