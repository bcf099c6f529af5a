// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

// Package index implements the in-process vector index: durable storage
// and nearest-neighbor retrieval of fixed-dimension embeddings.
//
// Two identifier policies exist behind one interface. The positional
// policy assigns sequential ids starting at 0 and never reuses or
// removes them. The keyed policy accepts caller-chosen int64 ids and
// supports removal. Every mutation persists a full snapshot to disk
// before returning; this trades write throughput for a trivially
// correct durability story, which suits moderate-volume catalogs.
package index

import (
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// Policy selects how the index assigns vector identifiers.
type Policy string

const (
	// PolicyPositional assigns sequential ids at insert time. No removal.
	PolicyPositional Policy = "positional"

	// PolicyKeyed accepts caller-supplied ids and supports removal.
	PolicyKeyed Policy = "keyed"
)

// SentinelID pads search results when fewer than k live vectors exist.
// Callers must filter sentinel hits and never dereference them.
const SentinelID int64 = -1

// Hit is a single search result: the vector's id and its squared L2
// distance from the query, ascending.
type Hit struct {
	ID       int64
	Distance float32
}

// Index is the vector index store. Implementations serialize mutations
// (insert, remove, reset) together with their snapshot write as one
// atomic unit; reads may run concurrently with each other but not with
// a mutation.
type Index interface {
	// Dimension returns the fixed embedding dimension D.
	Dimension() int

	// Policy returns the identifier policy selected at construction.
	Policy() Policy

	// Append inserts an embedding under the next free id and returns it.
	Append(embedding []float32) (int64, error)

	// Insert stores an embedding under the given id, replacing any
	// existing vector with that id. Keyed policy only.
	Insert(id int64, embedding []float32) error

	// InsertBatch inserts len(ids) vectors in one pass and persists
	// once at the end. All-or-nothing: any validation failure leaves
	// the index untouched. Keyed policy only.
	InsertBatch(ids []int64, embeddings [][]float32) error

	// Search returns the k nearest vectors to query in ascending
	// distance order. The result always has length k; slots beyond the
	// live vector count carry SentinelID.
	Search(query []float32, k int) ([]Hit, error)

	// Remove deletes the given ids if present, silently skipping
	// absent ones, and persists once. Keyed policy only.
	Remove(ids ...int64) error

	// Reconstruct returns the stored embedding for a live id.
	Reconstruct(id int64) ([]float32, error)

	// Count returns the number of live vectors.
	Count() int64

	// NextID returns the id the next Append would assign. Useful for
	// pre-allocating contiguous id ranges for batch inserts.
	NextID() int64

	// Reset clears all entries and persists an empty index.
	Reset() error
}

// Open loads the index snapshot at path, or creates a new empty index
// of the given dimension when no snapshot exists. The snapshot's own
// recorded policy and dimension must match the requested ones.
func Open(path string, dimension int, policy Policy) (Index, error) {
	if dimension <= 0 {
		return nil, vecaterr.Errorf(vecaterr.CodeIndexDimensionMismatch,
			"index dimension must be positive, got %d", dimension)
	}

	switch policy {
	case PolicyPositional:
		return openFlat(path, dimension)
	case PolicyKeyed:
		return openKeyedFlat(path, dimension)
	default:
		return nil, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"unknown index policy %q", policy)
	}
}

func validateDimension(dimension int, embedding []float32) error {
	if len(embedding) != dimension {
		return vecaterr.New(vecaterr.CodeIndexDimensionMismatch,
			"embedding dimension mismatch",
			vecaterr.FieldDimension(dimension),
			vecaterr.Field("got", len(embedding)),
		)
	}
	return nil
}
