// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/weave-sync/internal/config"
	"github.com/MKhiriev/weave-sync/migrations"
	"github.com/MKhiriev/weave-sync/models"
)

const (
	defaultTable    = "documents"
	defaultColumn   = "content"
	defaultIDColumn = "id"
	updatedAtColumn = "updated_at"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// snapshotQueries builds the three statements of a snapshot repository for
// one table layout.
type snapshotQueries struct {
	table    string
	column   string
	idColumn string
	builder  sq.StatementBuilderType
}

func newSnapshotQueries(cfg config.Storage, dialect string) (snapshotQueries, error) {
	q := snapshotQueries{
		table:    orDefault(cfg.Table, defaultTable),
		column:   orDefault(cfg.Column, defaultColumn),
		idColumn: orDefault(cfg.IDColumn, defaultIDColumn),
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	if dialect == migrations.DialectPostgres {
		q.builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}

	for _, name := range []string{q.table, q.column, q.idColumn} {
		if !identifierRe.MatchString(name) {
			return snapshotQueries{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return q, nil
}

// keyArg passes numeric keys as integers only to the integer id column;
// every other lookup column is text.
func (q snapshotQueries) keyArg(key models.DocumentKey) any {
	if q.idColumn == defaultIDColumn {
		return key.Arg()
	}
	return key.String()
}

func (q snapshotQueries) load(key models.DocumentKey) (string, []any, error) {
	return q.builder.
		Select(q.column, updatedAtColumn).
		From(q.table).
		Where(sq.Eq{q.idColumn: q.keyArg(key)}).
		Limit(1).
		ToSql()
}

func (q snapshotQueries) update(key models.DocumentKey, content []byte) (string, []any, error) {
	return q.builder.
		Update(q.table).
		Set(q.column, models.ByteArray(content)).
		Set(updatedAtColumn, sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{q.idColumn: q.keyArg(key)}).
		ToSql()
}

func (q snapshotQueries) insert(key models.DocumentKey, content []byte) (string, []any, error) {
	return q.builder.
		Insert(q.table).
		Columns(q.idColumn, q.column).
		Values(q.keyArg(key), models.ByteArray(content)).
		ToSql()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
