// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

// Package store defines the relational metadata layer: text, category,
// external identifiers, and tag associations keyed by the vector
// index's embed id. Implementations live in subpackages; callers depend
// only on the MetadataStore interface so the catalog can be tested with
// doubles.
package store

import (
	"context"
	"time"
)

// Metadata is one metadata record joined to a vector entry via EmbedID.
// RecordID is the store's own primary key and is independent of the
// embed id space.
type Metadata struct {
	RecordID   int64     `json:"record_id"`
	EmbedID    int64     `json:"embed_id"`
	Text       string    `json:"text"`
	ExternalID string    `json:"external_id,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tag is a unique label that can be associated with any number of
// metadata records.
type Tag struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Upsert is the input for MetadataStore.Upsert. EmbedID is the unique
// join key: at most one record may reference a given vector entry.
type Upsert struct {
	EmbedID    int64
	Text       string
	ExternalID string
	Category   string
	Tags       []string
}

// MetadataStore manages metadata records and tag associations.
//
// Upsert keys on EmbedID: inserting a second record with the same embed
// id updates text/external_id/category in place, bumps updated_at, and
// merges tags additively. Deleting a record cascades its tag
// associations and prunes tag rows left without any association.
type MetadataStore interface {
	Upsert(ctx context.Context, up Upsert) (int64, error)
	GetByEmbedID(ctx context.Context, embedID int64) (*Metadata, error)
	GetByRecordID(ctx context.Context, recordID int64) (*Metadata, error)

	// List returns records, optionally filtered by exact category
	// match; empty category means no filter.
	List(ctx context.Context, category string) ([]*Metadata, error)

	// All returns every record, for administrative inspection.
	All(ctx context.Context) ([]*Metadata, error)

	ListTags(ctx context.Context) ([]Tag, error)

	// DeleteByRecordID removes the record and its tag associations.
	// It does not touch the vector index; cross-store deletion is the
	// catalog's responsibility.
	DeleteByRecordID(ctx context.Context, recordID int64) error

	Count(ctx context.Context) (int64, error)

	// Reset removes all records, associations, and tags.
	Reset(ctx context.Context) error

	Close() error
}
