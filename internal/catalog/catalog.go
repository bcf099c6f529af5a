// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

// Package catalog sequences operations across the vector index and the
// metadata store so every externally observable vector is represented
// by exactly one index entry and at most one metadata record.
//
// There is no transaction spanning the two stores. The catalog holds
// one mutex across both steps of a mutating operation, which serializes
// cross-store writes against each other, but a metadata failure after a
// committed index write still leaves an orphaned vector behind. That
// partial failure is reported with its own error code so callers and
// repair tooling can tell it apart from a clean failure; the catalog
// deliberately does not auto-compensate.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vecat-dev/vecat/internal/index"
	"github.com/vecat-dev/vecat/internal/store"
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
	"github.com/vecat-dev/vecat/pkg/health"
)

// Document is one strongly typed insert request: the embedding plus the
// metadata that belongs to it. ExternalID, Category, and Tags are
// optional.
type Document struct {
	Embedding  []float32 `json:"embedding"`
	Text       string    `json:"text"`
	ExternalID string    `json:"external_id,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// Result is one enriched search hit. Metadata is nil when the index hit
// has no metadata record; the hit itself is still reported so callers
// never see fewer results than the index returned.
type Result struct {
	EmbedID  int64           `json:"embed_id"`
	Distance float32         `json:"distance"`
	Metadata *store.Metadata `json:"metadata"`
}

// Catalog orchestrates the vector index and the metadata store. Both
// collaborators are injected so tests can substitute doubles.
type Catalog struct {
	mu     sync.Mutex // serializes cross-store mutations
	index  index.Index
	meta   store.MetadataStore
	logger *slog.Logger
}

// New creates a Catalog over the given stores.
func New(idx index.Index, meta store.MetadataStore) *Catalog {
	return &Catalog{
		index:  idx,
		meta:   meta,
		logger: slog.Default(),
	}
}

// Add inserts the embedding into the index, then upserts the metadata
// record keyed by the assigned embed id, and returns the record id.
//
// If the index insert fails nothing was mutated. If the metadata upsert
// fails after the index committed, the error carries the orphaned-
// vector code and the committed embed id.
func (c *Catalog) Add(ctx context.Context, doc Document) (int64, error) {
	if err := c.validate(doc); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	embedID, err := c.index.Append(doc.Embedding)
	if err != nil {
		return 0, err
	}

	recordID, err := c.meta.Upsert(ctx, store.Upsert{
		EmbedID:    embedID,
		Text:       doc.Text,
		ExternalID: doc.ExternalID,
		Category:   doc.Category,
		Tags:       doc.Tags,
	})
	if err != nil {
		c.logger.Error("metadata write failed after vector commit",
			"embed_id", embedID, "error", err)
		return 0, vecaterr.Wrap(err, vecaterr.CodeCatalogOrphanedVector,
			"metadata write failed after vector commit",
			vecaterr.FieldEmbedID(embedID))
	}

	c.logger.Info("vector added", "embed_id", embedID, "record_id", recordID)
	return recordID, nil
}

// AddBatch validates every document, inserts all embeddings into the
// index in one pass under a contiguous id range, then upserts metadata
// per document. Requires the keyed policy. Returns the record ids in
// document order.
func (c *Catalog) AddBatch(ctx context.Context, docs []Document) ([]int64, error) {
	if len(docs) == 0 {
		return nil, vecaterr.New(vecaterr.CodeCatalogBatchInvalid, "batch is empty")
	}
	if c.index.Policy() != index.PolicyKeyed {
		return nil, vecaterr.New(vecaterr.CodeIndexInsertUnsupported,
			"batch insert requires a keyed index")
	}
	for i, doc := range docs {
		if err := c.validate(doc); err != nil {
			return nil, vecaterr.Wrapf(err, vecaterr.CodeCatalogBatchInvalid,
				"document %d invalid", i)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.index.NextID()
	ids := make([]int64, len(docs))
	embeddings := make([][]float32, len(docs))
	for i, doc := range docs {
		ids[i] = base + int64(i)
		embeddings[i] = doc.Embedding
	}

	if err := c.index.InsertBatch(ids, embeddings); err != nil {
		return nil, err
	}

	recordIDs := make([]int64, 0, len(docs))
	for i, doc := range docs {
		recordID, err := c.meta.Upsert(ctx, store.Upsert{
			EmbedID:    ids[i],
			Text:       doc.Text,
			ExternalID: doc.ExternalID,
			Category:   doc.Category,
			Tags:       doc.Tags,
		})
		if err != nil {
			c.logger.Error("batch metadata write failed after vector commit",
				"embed_id", ids[i], "committed", i, "total", len(docs), "error", err)
			return recordIDs, vecaterr.Wrap(err, vecaterr.CodeCatalogOrphanedVector,
				"metadata write failed after vector commit",
				vecaterr.FieldEmbedID(ids[i]),
				vecaterr.Field("orphaned_count", len(docs)-i),
			)
		}
		recordIDs = append(recordIDs, recordID)
	}

	c.logger.Info("batch added", "count", len(docs), "first_embed_id", base)
	return recordIDs, nil
}

// Search returns the topK nearest vectors with their metadata. Sentinel
// hits are filtered; a metadata miss degrades to a nil-metadata result
// and never shrinks the hit list or raises.
func (c *Catalog) Search(ctx context.Context, query []float32, topK int) ([]Result, error) {
	hits, err := c.index.Search(query, topK)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if hit.ID == index.SentinelID {
			continue
		}

		res := Result{EmbedID: hit.ID, Distance: hit.Distance}

		meta, err := c.meta.GetByEmbedID(ctx, hit.ID)
		switch {
		case err == nil:
			res.Metadata = meta
		case vecaterr.IsNotFound(err):
			// Orphaned vector: report the hit without metadata.
			c.logger.Warn("search hit has no metadata", "embed_id", hit.ID)
		default:
			return nil, err
		}

		results = append(results, res)
	}

	return results, nil
}

// Delete removes the metadata record and then the referenced vector.
// It fails fast on a positional index before touching either store:
// silently dropping metadata while the vector stays live would corrupt
// the join.
func (c *Catalog) Delete(ctx context.Context, recordID int64) error {
	if c.index.Policy() != index.PolicyKeyed {
		return vecaterr.New(vecaterr.CodeCatalogDeleteUnsupported,
			"delete requires a keyed index; positional indexes do not support removal")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.meta.GetByRecordID(ctx, recordID)
	if err != nil {
		if vecaterr.IsNotFound(err) {
			return vecaterr.Wrap(err, vecaterr.CodeCatalogRecordNotFound,
				"record not found", vecaterr.FieldRecordID(recordID))
		}
		return err
	}

	if err := c.meta.DeleteByRecordID(ctx, recordID); err != nil {
		return err
	}

	if err := c.index.Remove(rec.EmbedID); err != nil {
		c.logger.Error("vector removal failed after metadata delete",
			"embed_id", rec.EmbedID, "record_id", recordID, "error", err)
		return vecaterr.Wrap(err, vecaterr.CodeCatalogOrphanedVector,
			"vector removal failed after metadata delete",
			vecaterr.FieldEmbedID(rec.EmbedID))
	}

	c.logger.Info("vector deleted", "embed_id", rec.EmbedID, "record_id", recordID)
	return nil
}

// Vector returns the stored embedding for an embed id. It does not
// require a metadata match; administrative and debugging use.
func (c *Catalog) Vector(_ context.Context, embedID int64) ([]float32, error) {
	return c.index.Reconstruct(embedID)
}

// Metadata lists metadata records, optionally filtered by category.
func (c *Catalog) Metadata(ctx context.Context, category string) ([]*store.Metadata, error) {
	return c.meta.List(ctx, category)
}

// Tags lists every known tag.
func (c *Catalog) Tags(ctx context.Context) ([]store.Tag, error) {
	return c.meta.ListTags(ctx)
}

// Reset clears both stores.
func (c *Catalog) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index.Reset(); err != nil {
		return err
	}
	if err := c.meta.Reset(ctx); err != nil {
		return err
	}

	c.logger.Info("catalog reset")
	return nil
}

// Stats reports live counts from both stores. Diverging counts mark a
// join-integrity defect and flip Consistent to false; they do not fail
// the call.
func (c *Catalog) Stats(ctx context.Context) (health.Stats, error) {
	metaCount, err := c.meta.Count(ctx)
	if err != nil {
		return health.Stats{}, err
	}

	vecCount := c.index.Count()
	return health.Stats{
		VectorCount:   vecCount,
		MetadataCount: metaCount,
		Dimensions:    c.index.Dimension(),
		IndexPolicy:   string(c.index.Policy()),
		Consistent:    vecCount == metaCount,
	}, nil
}

func (c *Catalog) validate(doc Document) error {
	if doc.Text == "" {
		return vecaterr.New(vecaterr.CodeStoreInvalidInput, "document text is required")
	}
	if len(doc.Embedding) != c.index.Dimension() {
		return vecaterr.New(vecaterr.CodeIndexDimensionMismatch,
			"document embedding dimension mismatch",
			vecaterr.FieldDimension(c.index.Dimension()),
			vecaterr.Field("got", len(doc.Embedding)),
		)
	}
	return nil
}
