// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package catalog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecat-dev/vecat/internal/catalog"
	"github.com/vecat-dev/vecat/internal/index"
	"github.com/vecat-dev/vecat/internal/store"
	"github.com/vecat-dev/vecat/internal/store/sqlite"
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

type fixture struct {
	catalog *catalog.Catalog
	index   index.Index
	meta    store.MetadataStore
}

func newFixture(t *testing.T, policy index.Policy, dimensions int) *fixture {
	t.Helper()
	dir := t.TempDir()

	idx, err := index.Open(filepath.Join(dir, "index.snap"), dimensions, policy)
	require.NoError(t, err)

	meta, err := sqlite.NewMetadataStore(filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	return &fixture{catalog: catalog.New(idx, meta), index: idx, meta: meta}
}

func TestAddThenSearchEnriches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 4)

	embedding := []float32{1, 0, 0, 0}
	recordID, err := f.catalog.Add(ctx, catalog.Document{
		Embedding: embedding,
		Text:      "hello",
		Tags:      []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Positive(t, recordID)

	results, err := f.catalog.Search(ctx, embedding, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0), results[0].Distance)
	require.NotNil(t, results[0].Metadata)
	assert.Equal(t, "hello", results[0].Metadata.Text)
	assert.ElementsMatch(t, []string{"a", "b"}, results[0].Metadata.Tags)
}

func TestAddRejectsDimensionMismatchBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 4)

	_, err := f.catalog.Add(ctx, catalog.Document{
		Embedding: []float32{1, 0},
		Text:      "short",
	})
	require.Error(t, err)
	assert.True(t, vecaterr.IsDimensionMismatch(err))

	stats, err := f.catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.VectorCount)
	assert.Zero(t, stats.MetadataCount)
}

func TestAddRejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 4)

	_, err := f.catalog.Add(ctx, catalog.Document{Embedding: []float32{1, 0, 0, 0}})
	require.Error(t, err)
	assert.True(t, vecaterr.IsInvalidInput(err))
	assert.Zero(t, f.index.Count())
}

func TestSearchConcreteScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 4)

	var ids []int64
	for _, e := range [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {1, 1, 0, 0}} {
		_, err := f.catalog.Add(ctx, catalog.Document{Embedding: e, Text: "doc"})
		require.NoError(t, err)
		ids = append(ids, f.index.NextID()-1)
	}

	results, err := f.catalog.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ids[0], results[0].EmbedID)
	assert.Equal(t, float32(0), results[0].Distance)
	assert.Equal(t, ids[2], results[1].EmbedID)
	assert.Equal(t, float32(1), results[1].Distance)
}

func TestSearchFiltersSentinels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 4)

	for _, e := range [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {1, 1, 0, 0}} {
		_, err := f.catalog.Add(ctx, catalog.Document{Embedding: e, Text: "doc"})
		require.NoError(t, err)
	}

	results, err := f.catalog.Search(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchToleratesMissingMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	// A vector without any metadata record (simulated orphan).
	_, err := f.index.Append([]float32{1, 0})
	require.NoError(t, err)

	_, err = f.catalog.Add(ctx, catalog.Document{Embedding: []float32{0, 1}, Text: "real"})
	require.NoError(t, err)

	results, err := f.catalog.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Nil(t, results[0].Metadata)
	require.NotNil(t, results[1].Metadata)
	assert.Equal(t, "real", results[1].Metadata.Text)
}

func TestDanglingMetadataExcludedFromSearchButReadable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	// Metadata referencing an embed id that has no vector.
	_, err := f.meta.Upsert(ctx, store.Upsert{EmbedID: 999, Text: "dangling"})
	require.NoError(t, err)

	_, err = f.catalog.Add(ctx, catalog.Document{Embedding: []float32{1, 0}, Text: "live"})
	require.NoError(t, err)

	results, err := f.catalog.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "live", results[0].Metadata.Text)

	// Direct metadata reads still work for the dangling record.
	rec, err := f.meta.GetByEmbedID(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, "dangling", rec.Text)

	stats, err := f.catalog.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Consistent)
}

func TestDeleteRemovesBothStores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	recordID, err := f.catalog.Add(ctx, catalog.Document{
		Embedding: []float32{1, 0}, Text: "goner", Tags: []string{"x"},
	})
	require.NoError(t, err)

	rec, err := f.meta.GetByRecordID(ctx, recordID)
	require.NoError(t, err)
	embedID := rec.EmbedID

	require.NoError(t, f.catalog.Delete(ctx, recordID))

	results, err := f.catalog.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, embedID, r.EmbedID)
	}

	_, err = f.catalog.Vector(ctx, embedID)
	require.Error(t, err)
	assert.True(t, vecaterr.IsNotFound(err))

	_, err = f.meta.GetByRecordID(ctx, recordID)
	assert.True(t, vecaterr.IsNotFound(err))
}

func TestDeleteUnsupportedOnPositionalIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyPositional, 2)

	recordID, err := f.catalog.Add(ctx, catalog.Document{Embedding: []float32{1, 0}, Text: "stays"})
	require.NoError(t, err)

	err = f.catalog.Delete(ctx, recordID)
	require.Error(t, err)
	assert.True(t, vecaterr.IsUnsupported(err))

	// Both stores untouched.
	assert.Equal(t, int64(1), f.index.Count())
	rec, err := f.meta.GetByRecordID(ctx, recordID)
	require.NoError(t, err)
	assert.Equal(t, "stays", rec.Text)
}

func TestDeleteMissingRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	err := f.catalog.Delete(ctx, 42)
	require.Error(t, err)
	assert.True(t, vecaterr.IsNotFound(err))
}

func TestAddBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	recordIDs, err := f.catalog.AddBatch(ctx, []catalog.Document{
		{Embedding: []float32{1, 0}, Text: "one", Category: "a"},
		{Embedding: []float32{0, 1}, Text: "two", Category: "b"},
		{Embedding: []float32{1, 1}, Text: "three", Tags: []string{"t"}},
	})
	require.NoError(t, err)
	assert.Len(t, recordIDs, 3)

	stats, err := f.catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.VectorCount)
	assert.Equal(t, int64(3), stats.MetadataCount)
	assert.True(t, stats.Consistent)
}

func TestAddBatchValidatesBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	_, err := f.catalog.AddBatch(ctx, []catalog.Document{
		{Embedding: []float32{1, 0}, Text: "fine"},
		{Embedding: []float32{1, 0, 0}, Text: "wrong dimension"},
	})
	require.Error(t, err)
	assert.True(t, vecaterr.IsInvalidInput(err))
	assert.Zero(t, f.index.Count())
}

func TestAddBatchRequiresKeyedIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyPositional, 2)

	_, err := f.catalog.AddBatch(ctx, []catalog.Document{
		{Embedding: []float32{1, 0}, Text: "doc"},
	})
	require.Error(t, err)
	assert.True(t, vecaterr.IsUnsupported(err))
}

func TestAddBatchEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	_, err := f.catalog.AddBatch(ctx, nil)
	require.Error(t, err)
	assert.True(t, vecaterr.IsInvalidInput(err))
}

func TestResetClearsBothStores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, index.PolicyKeyed, 2)

	_, err := f.catalog.Add(ctx, catalog.Document{Embedding: []float32{1, 0}, Text: "doc"})
	require.NoError(t, err)

	require.NoError(t, f.catalog.Reset(ctx))

	stats, err := f.catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.VectorCount)
	assert.Zero(t, stats.MetadataCount)
	assert.True(t, stats.Consistent)
}

// failingMeta wraps a real store but fails every Upsert, standing in
// for a metadata database outage between the two steps of Add.
type failingMeta struct {
	store.MetadataStore
}

func (f *failingMeta) Upsert(context.Context, store.Upsert) (int64, error) {
	return 0, vecaterr.New(vecaterr.CodeStoreDatabaseFailure, "database is on fire")
}

func TestAddReportsOrphanedVectorDistinctly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := index.Open(filepath.Join(dir, "index.snap"), 2, index.PolicyKeyed)
	require.NoError(t, err)

	meta, err := sqlite.NewMetadataStore(filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	defer func() { _ = meta.Close() }()

	c := catalog.New(idx, &failingMeta{MetadataStore: meta})

	_, err = c.Add(ctx, catalog.Document{Embedding: []float32{1, 0}, Text: "doomed"})
	require.Error(t, err)
	assert.True(t, vecaterr.IsOrphanedVector(err))

	// The vector committed: the index grew while metadata did not.
	assert.Equal(t, int64(1), idx.Count())
	n, err := meta.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, idx.NextID()-1, vecaterr.FieldsOf(err)["embed_id"])
}
