// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/migrations"
	"github.com/MKhiriev/weave-sync/models"
)

func TestSnapshotQueries_Postgres(t *testing.T) {
	q, err := newSnapshotQueries(config.Storage{}, migrations.DialectPostgres)
	require.NoError(t, err)

	key := models.ParseDocumentKey("42")

	query, args, err := q.load(key)
	require.NoError(t, err)
	assert.Equal(t, "SELECT content, updated_at FROM documents WHERE id = $1 LIMIT 1", query)
	assert.Equal(t, []any{int64(42)}, args)

	query, args, err = q.update(key, []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE documents SET content = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", query)
	assert.Equal(t, []any{models.ByteArray{1, 2}, int64(42)}, args)

	query, args, err = q.insert(key, []byte{3})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO documents (id,content) VALUES ($1,$2)", query)
	assert.Equal(t, []any{int64(42), models.ByteArray{3}}, args)
}

func TestSnapshotQueries_KeyArg(t *testing.T) {
	tests := []struct {
		name     string
		idColumn string
		key      string
		want     any
	}{
		{"numeric key on default column", "", "7", int64(7)},
		{"string key on default column", "", "notes", "notes"},
		{"numeric key on custom column", "slug", "7", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := newSnapshotQueries(config.Storage{IDColumn: tt.idColumn}, migrations.DialectSQLite)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.keyArg(models.ParseDocumentKey(tt.key)))
		})
	}
}

func TestSnapshotQueries_RejectsInjectedIdentifiers(t *testing.T) {
	for _, cfg := range []config.Storage{
		{Table: "documents; DROP TABLE users"},
		{Column: "content--"},
		{IDColumn: "1id"},
	} {
		_, err := newSnapshotQueries(cfg, migrations.DialectSQLite)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	}
}
