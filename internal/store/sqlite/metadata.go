// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

// Package sqlite implements the metadata store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vecat-dev/vecat/internal/store"
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// Compile-time interface check.
var _ store.MetadataStore = (*MetadataStore)(nil)

// MetadataStore implements store.MetadataStore backed by SQLite.
type MetadataStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMetadataStore opens (or creates) a SQLite database at dbPath and
// initialises the vectors/tags/vector_tags schema.
func NewMetadataStore(dbPath string) (*MetadataStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "creating db directory")
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	if err := migrateMetadata(db); err != nil {
		_ = db.Close()
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "migrating metadata tables")
	}

	return &MetadataStore{db: db, logger: slog.Default()}, nil
}

func migrateMetadata(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS vectors (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	text        TEXT NOT NULL,
	embed_id    INTEGER UNIQUE,
	external_id TEXT,
	category    TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
	id  INTEGER PRIMARY KEY AUTOINCREMENT,
	tag TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS vector_tags (
	vector_id INTEGER,
	tag_id    INTEGER,
	PRIMARY KEY (vector_id, tag_id),
	FOREIGN KEY (vector_id) REFERENCES vectors (id) ON DELETE CASCADE,
	FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_vectors_category ON vectors(category);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (m *MetadataStore) Close() error {
	return m.db.Close()
}

// Upsert inserts a record, or updates text/external_id/category and
// bumps updated_at when a record with this embed id already exists.
// Tags are merged additively; upsert never removes an association.
func (m *MetadataStore) Upsert(ctx context.Context, up store.Upsert) (int64, error) {
	if up.Text == "" {
		return 0, vecaterr.New(vecaterr.CodeStoreInvalidInput,
			"metadata text is required", vecaterr.FieldEmbedID(up.EmbedID))
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())

	const q = `INSERT INTO vectors (text, embed_id, external_id, category, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(embed_id) DO UPDATE SET
	text = excluded.text,
	external_id = excluded.external_id,
	category = excluded.category,
	updated_at = excluded.updated_at
RETURNING id`

	var recordID int64
	err = tx.QueryRowContext(ctx, q,
		up.Text, up.EmbedID, nullable(up.ExternalID), nullable(up.Category), now, now,
	).Scan(&recordID)
	if err != nil {
		return 0, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure,
			"upserting metadata record", vecaterr.FieldEmbedID(up.EmbedID))
	}

	for _, tag := range up.Tags {
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (tag) VALUES (?)`, tag); err != nil {
			return 0, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "inserting tag")
		}

		var tagID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE tag = ?`, tag).Scan(&tagID); err != nil {
			return 0, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "resolving tag id")
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO vector_tags (vector_id, tag_id) VALUES (?, ?)`,
			recordID, tagID,
		); err != nil {
			return 0, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "associating tag")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure,
			"committing metadata upsert", vecaterr.FieldEmbedID(up.EmbedID))
	}

	m.logger.Debug("metadata upserted",
		"record_id", recordID, "embed_id", up.EmbedID, "tags", len(up.Tags))
	return recordID, nil
}

// GetByEmbedID returns the record referencing the given vector entry,
// including its full tag label set.
func (m *MetadataStore) GetByEmbedID(ctx context.Context, embedID int64) (*store.Metadata, error) {
	const q = `SELECT id, text, embed_id, external_id, category, created_at, updated_at
FROM vectors WHERE embed_id = ?`

	rec, err := scanMetadata(m.db.QueryRowContext(ctx, q, embedID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vecaterr.New(vecaterr.CodeStoreRecordNotFound,
				"no metadata for embed id", vecaterr.FieldEmbedID(embedID))
		}
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure,
			"getting metadata record", vecaterr.FieldEmbedID(embedID))
	}

	tags, err := m.tagsForRecords(ctx, rec.RecordID)
	if err != nil {
		return nil, err
	}
	rec.Tags = tags[rec.RecordID]

	return rec, nil
}

// GetByRecordID returns the record with the given primary key,
// including its full tag label set.
func (m *MetadataStore) GetByRecordID(ctx context.Context, recordID int64) (*store.Metadata, error) {
	const q = `SELECT id, text, embed_id, external_id, category, created_at, updated_at
FROM vectors WHERE id = ?`

	rec, err := scanMetadata(m.db.QueryRowContext(ctx, q, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vecaterr.New(vecaterr.CodeStoreRecordNotFound,
				"metadata record not found", vecaterr.FieldRecordID(recordID))
		}
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure,
			"getting metadata record", vecaterr.FieldRecordID(recordID))
	}

	tags, err := m.tagsForRecords(ctx, rec.RecordID)
	if err != nil {
		return nil, err
	}
	rec.Tags = tags[rec.RecordID]

	return rec, nil
}

// List returns records, optionally filtered by exact category match.
func (m *MetadataStore) List(ctx context.Context, category string) ([]*store.Metadata, error) {
	q := `SELECT id, text, embed_id, external_id, category, created_at, updated_at FROM vectors`
	args := []any{}
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}

	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "listing metadata records")
	}
	defer func() { _ = rows.Close() }()

	var recs []*store.Metadata
	var ids []int64
	for rows.Next() {
		rec, err := scanMetadata(rows)
		if err != nil {
			return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "scanning metadata record")
		}
		recs = append(recs, rec)
		ids = append(ids, rec.RecordID)
	}
	if err := rows.Err(); err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "iterating metadata records")
	}

	tags, err := m.tagsForRecords(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		rec.Tags = tags[rec.RecordID]
	}

	return recs, nil
}

// All returns every record, for administrative inspection.
func (m *MetadataStore) All(ctx context.Context) ([]*store.Metadata, error) {
	return m.List(ctx, "")
}

// ListTags returns every tag in the store.
func (m *MetadataStore) ListTags(ctx context.Context) ([]store.Tag, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, tag FROM tags ORDER BY tag`)
	if err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "listing tags")
	}
	defer func() { _ = rows.Close() }()

	var tags []store.Tag
	for rows.Next() {
		var t store.Tag
		if err := rows.Scan(&t.ID, &t.Label); err != nil {
			return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "scanning tag")
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "iterating tags")
	}

	return tags, nil
}

// DeleteByRecordID removes the record, cascades its tag associations,
// and prunes tags no longer associated with any record.
func (m *MetadataStore) DeleteByRecordID(ctx context.Context, recordID int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, recordID)
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure,
			"deleting metadata record", vecaterr.FieldRecordID(recordID))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "checking delete result")
	}
	if n == 0 {
		return vecaterr.New(vecaterr.CodeStoreRecordNotFound,
			"metadata record not found", vecaterr.FieldRecordID(recordID))
	}

	// Prune tags left without any association.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM vector_tags)`,
	); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "pruning orphaned tags")
	}

	if err := tx.Commit(); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure,
			"committing metadata delete", vecaterr.FieldRecordID(recordID))
	}

	m.logger.Debug("metadata record deleted", "record_id", recordID)
	return nil
}

// Count returns the number of metadata records.
func (m *MetadataStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "counting metadata records")
	}
	return n, nil
}

// Reset removes all records, associations, and tags.
func (m *MetadataStore) Reset(ctx context.Context) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"vector_tags", "vectors", "tags"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "clearing table "+table)
		}
	}

	if err := tx.Commit(); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "committing reset")
	}

	m.logger.Info("metadata store reset")
	return nil
}

// tagsForRecords loads tag labels for the given record ids in one query.
func (m *MetadataStore) tagsForRecords(ctx context.Context, recordIDs ...int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}

	q := `SELECT vt.vector_id, t.tag FROM tags t
JOIN vector_tags vt ON vt.tag_id = t.id
WHERE vt.vector_id IN (?` + strings.Repeat(",?", len(recordIDs)-1) + `)
ORDER BY t.tag`

	args := make([]any, len(recordIDs))
	for i, id := range recordIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "loading tag associations")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var recordID int64
		var tag string
		if err := rows.Scan(&recordID, &tag); err != nil {
			return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "scanning tag association")
		}
		out[recordID] = append(out[recordID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeStoreDatabaseFailure, "iterating tag associations")
	}

	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row rowScanner) (*store.Metadata, error) {
	var rec store.Metadata
	var externalID, category sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&rec.RecordID, &rec.Text, &rec.EmbedID,
		&externalID, &category, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec.ExternalID = externalID.String
	rec.Category = category.String

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
