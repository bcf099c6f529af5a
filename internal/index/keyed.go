// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package index

import (
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// Compile-time interface check.
var _ Index = (*KeyedFlat)(nil)

// KeyedFlat is the keyed-policy index: brute-force squared-L2 search
// over caller-identified vectors with removal support. Vectors live in
// a contiguous row-major buffer; removed slots are tombstoned and
// reused for storage, but ids themselves are never reassigned by the
// index (Append hands out a monotonically increasing id).
type KeyedFlat struct {
	mu      sync.RWMutex
	path    string
	dim     int
	data    []float32
	slotIDs []int64 // id occupying each slot; SentinelID marks a tombstone
	offsets map[int64]int
	free    []int
	live    *roaring64.Bitmap
	nextID  int64
}

func openKeyedFlat(path string, dimension int) (*KeyedFlat, error) {
	st, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}

	k := &KeyedFlat{
		path:    path,
		dim:     dimension,
		offsets: make(map[int64]int),
		live:    roaring64.New(),
	}

	if st == nil {
		slog.Info("creating new keyed index", "path", path, "dimensions", dimension)
		return k, nil
	}

	if err := st.check(PolicyKeyed, dimension); err != nil {
		return nil, err
	}

	k.data = st.Data
	k.slotIDs = st.SlotIDs
	k.nextID = st.NextID
	for slot, id := range k.slotIDs {
		if id == SentinelID {
			k.free = append(k.free, slot)
			continue
		}
		k.offsets[id] = slot
		k.live.Add(uint64(id))
	}

	slog.Info("loaded keyed index snapshot", "path", path, "vectors", k.live.GetCardinality())
	return k, nil
}

func (k *KeyedFlat) Dimension() int { return k.dim }

func (k *KeyedFlat) Policy() Policy { return PolicyKeyed }

// Append stores the embedding under the next unused id and returns it.
func (k *KeyedFlat) Append(embedding []float32) (int64, error) {
	if err := validateDimension(k.dim, embedding); err != nil {
		return 0, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	id := k.nextID
	undo := k.insertLocked(id, embedding)

	if err := writeSnapshot(k.path, k.stateLocked()); err != nil {
		undo()
		return 0, err
	}
	return id, nil
}

// Insert stores the embedding under the caller-chosen id, replacing any
// existing vector with that id in place.
func (k *KeyedFlat) Insert(id int64, embedding []float32) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := validateDimension(k.dim, embedding); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	undo := k.insertLocked(id, embedding)

	if err := writeSnapshot(k.path, k.stateLocked()); err != nil {
		undo()
		return err
	}
	return nil
}

// InsertBatch inserts all vectors in one pass and persists once at the
// end. Validation runs up front so a failure leaves the index untouched.
func (k *KeyedFlat) InsertBatch(ids []int64, embeddings [][]float32) error {
	if len(ids) != len(embeddings) {
		return vecaterr.New(vecaterr.CodeIndexBatchArityMismatch,
			"batch id/embedding count mismatch",
			vecaterr.Field("ids", len(ids)),
			vecaterr.Field("embeddings", len(embeddings)),
		)
	}

	seen := make(map[int64]struct{}, len(ids))
	for i, id := range ids {
		if err := validateID(id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return vecaterr.New(vecaterr.CodeIndexDuplicateID,
				"duplicate id within batch", vecaterr.FieldEmbedID(id))
		}
		seen[id] = struct{}{}
		if err := validateDimension(k.dim, embeddings[i]); err != nil {
			return err
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	undos := make([]func(), 0, len(ids))
	for i, id := range ids {
		undos = append(undos, k.insertLocked(id, embeddings[i]))
	}

	if err := writeSnapshot(k.path, k.stateLocked()); err != nil {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
		return err
	}
	return nil
}

func (k *KeyedFlat) Search(query []float32, kNearest int) ([]Hit, error) {
	if err := validateDimension(k.dim, query); err != nil {
		return nil, err
	}
	if kNearest <= 0 {
		return nil, nil
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	hits := make([]Hit, 0, len(k.offsets))
	for slot, id := range k.slotIDs {
		if id == SentinelID {
			continue
		}
		hits = append(hits, Hit{
			ID:       id,
			Distance: squaredL2(query, k.data[slot*k.dim:(slot+1)*k.dim]),
		})
	}
	return nearestK(hits, kNearest), nil
}

// Remove deletes the given ids if present. Absent ids are silent
// no-ops. The snapshot is persisted once regardless.
func (k *KeyedFlat) Remove(ids ...int64) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	type removed struct {
		id     int64
		slot   int
		vector []float32
	}
	var undone []removed

	for _, id := range ids {
		slot, ok := k.offsets[id]
		if !ok {
			continue
		}

		vec := make([]float32, k.dim)
		copy(vec, k.data[slot*k.dim:(slot+1)*k.dim])
		undone = append(undone, removed{id: id, slot: slot, vector: vec})

		k.slotIDs[slot] = SentinelID
		k.free = append(k.free, slot)
		delete(k.offsets, id)
		k.live.Remove(uint64(id))
	}

	if err := writeSnapshot(k.path, k.stateLocked()); err != nil {
		for i := len(undone) - 1; i >= 0; i-- {
			r := undone[i]
			k.slotIDs[r.slot] = r.id
			copy(k.data[r.slot*k.dim:(r.slot+1)*k.dim], r.vector)
			k.free = k.free[:len(k.free)-1]
			k.offsets[r.id] = r.slot
			k.live.Add(uint64(r.id))
		}
		return err
	}
	return nil
}

func (k *KeyedFlat) Reconstruct(id int64) ([]float32, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	slot, ok := k.offsets[id]
	if !ok {
		return nil, vecaterr.New(vecaterr.CodeIndexEntryNotFound,
			"vector id not present", vecaterr.FieldEmbedID(id))
	}

	out := make([]float32, k.dim)
	copy(out, k.data[slot*k.dim:(slot+1)*k.dim])
	return out, nil
}

func (k *KeyedFlat) Count() int64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return int64(k.live.GetCardinality())
}

func (k *KeyedFlat) NextID() int64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.nextID
}

func (k *KeyedFlat) Reset() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	prevData, prevSlotIDs := k.data, k.slotIDs
	prevOffsets, prevFree := k.offsets, k.free
	prevLive, prevNextID := k.live, k.nextID

	k.data = nil
	k.slotIDs = nil
	k.offsets = make(map[int64]int)
	k.free = nil
	k.live = roaring64.New()
	k.nextID = 0

	if err := writeSnapshot(k.path, k.stateLocked()); err != nil {
		k.data, k.slotIDs = prevData, prevSlotIDs
		k.offsets, k.free = prevOffsets, prevFree
		k.live, k.nextID = prevLive, prevNextID
		return err
	}

	slog.Info("keyed index reset", "path", k.path)
	return nil
}

// insertLocked places the vector and returns an undo func that restores
// the exact prior state. Caller holds the write lock.
func (k *KeyedFlat) insertLocked(id int64, embedding []float32) func() {
	prevNextID := k.nextID
	if id >= k.nextID {
		k.nextID = id + 1
	}

	if slot, ok := k.offsets[id]; ok {
		// Replace in place.
		prev := make([]float32, k.dim)
		copy(prev, k.data[slot*k.dim:(slot+1)*k.dim])
		copy(k.data[slot*k.dim:(slot+1)*k.dim], embedding)
		return func() {
			copy(k.data[slot*k.dim:(slot+1)*k.dim], prev)
			k.nextID = prevNextID
		}
	}

	var slot int
	var reused bool
	if n := len(k.free); n > 0 {
		slot = k.free[n-1]
		k.free = k.free[:n-1]
		reused = true
		k.slotIDs[slot] = id
		copy(k.data[slot*k.dim:(slot+1)*k.dim], embedding)
	} else {
		slot = len(k.slotIDs)
		k.slotIDs = append(k.slotIDs, id)
		k.data = append(k.data, embedding...)
	}
	k.offsets[id] = slot
	k.live.Add(uint64(id))

	return func() {
		delete(k.offsets, id)
		k.live.Remove(uint64(id))
		if reused {
			k.slotIDs[slot] = SentinelID
			k.free = append(k.free, slot)
		} else {
			k.slotIDs = k.slotIDs[:slot]
			k.data = k.data[:slot*k.dim]
		}
		k.nextID = prevNextID
	}
}

func (k *KeyedFlat) stateLocked() *snapshotState {
	return &snapshotState{
		Policy:  PolicyKeyed,
		Dim:     k.dim,
		Data:    k.data,
		SlotIDs: k.slotIDs,
		NextID:  k.nextID,
	}
}

func validateID(id int64) error {
	if id < 0 {
		return vecaterr.New(vecaterr.CodeIndexInvalidID,
			"vector id must be non-negative", vecaterr.FieldEmbedID(id))
	}
	return nil
}
