// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package index

import (
	"log/slog"
	"sync"

	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// Compile-time interface check.
var _ Index = (*Flat)(nil)

// Flat is the positional-policy index: a brute-force squared-L2 index
// over a contiguous row-major buffer. Ids equal insertion order,
// starting at 0, and are never reassigned; the policy offers no
// removal, so entries can only be orphaned, never destroyed.
type Flat struct {
	mu   sync.RWMutex
	path string
	dim  int
	data []float32 // row-major; vector i occupies data[i*dim : (i+1)*dim]
}

func openFlat(path string, dimension int) (*Flat, error) {
	st, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}

	f := &Flat{path: path, dim: dimension}

	if st == nil {
		slog.Info("creating new positional index", "path", path, "dimensions", dimension)
		return f, nil
	}

	if err := st.check(PolicyPositional, dimension); err != nil {
		return nil, err
	}
	f.data = st.Data

	slog.Info("loaded positional index snapshot", "path", path, "vectors", f.countLocked())
	return f, nil
}

func (f *Flat) Dimension() int { return f.dim }

func (f *Flat) Policy() Policy { return PolicyPositional }

// Append stores the embedding under the next sequential id and persists
// the snapshot before returning. On a persistence failure the in-memory
// state is rolled back so memory and disk stay aligned.
func (f *Flat) Append(embedding []float32) (int64, error) {
	if err := validateDimension(f.dim, embedding); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.countLocked()
	f.data = append(f.data, embedding...)

	if err := writeSnapshot(f.path, f.stateLocked()); err != nil {
		f.data = f.data[:len(f.data)-f.dim]
		return 0, err
	}
	return id, nil
}

// Insert is unsupported under the positional policy: ids are assigned
// by the index, never by the caller.
func (f *Flat) Insert(int64, []float32) error {
	return vecaterr.New(vecaterr.CodeIndexInsertUnsupported,
		"positional index assigns its own ids; use Append")
}

func (f *Flat) InsertBatch([]int64, [][]float32) error {
	return vecaterr.New(vecaterr.CodeIndexInsertUnsupported,
		"positional index assigns its own ids; use Append")
}

func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if err := validateDimension(f.dim, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	count := f.countLocked()
	hits := make([]Hit, 0, count)
	for i := int64(0); i < count; i++ {
		hits = append(hits, Hit{
			ID:       i,
			Distance: squaredL2(query, f.data[i*int64(f.dim):(i+1)*int64(f.dim)]),
		})
	}
	return nearestK(hits, k), nil
}

// Remove is unsupported under the positional policy. This is enforced,
// not silently ignored, so a caller cannot believe a vector is gone
// while it still serves search hits.
func (f *Flat) Remove(...int64) error {
	return vecaterr.New(vecaterr.CodeIndexRemoveUnsupported,
		"positional index does not support removal")
}

func (f *Flat) Reconstruct(id int64) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if id < 0 || id >= f.countLocked() {
		return nil, vecaterr.New(vecaterr.CodeIndexEntryNotFound,
			"vector id out of range", vecaterr.FieldEmbedID(id))
	}

	out := make([]float32, f.dim)
	copy(out, f.data[id*int64(f.dim):(id+1)*int64(f.dim)])
	return out, nil
}

func (f *Flat) Count() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.countLocked()
}

func (f *Flat) NextID() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.countLocked()
}

func (f *Flat) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.data
	f.data = nil

	if err := writeSnapshot(f.path, f.stateLocked()); err != nil {
		f.data = prev
		return err
	}

	slog.Info("positional index reset", "path", f.path)
	return nil
}

func (f *Flat) countLocked() int64 {
	return int64(len(f.data) / f.dim)
}

func (f *Flat) stateLocked() *snapshotState {
	return &snapshotState{
		Policy: PolicyPositional,
		Dim:    f.dim,
		Data:   f.data,
	}
}
