// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package index

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// snapshotMagic identifies a vecat index snapshot file. The version
// byte guards the gob payload layout.
var snapshotMagic = []byte("VCIX")

const snapshotVersion byte = 1

// snapshotState is the full on-disk representation of an index. The
// format is opaque to everything outside this package: magic + version
// header followed by a zstd-compressed gob stream.
type snapshotState struct {
	Policy  Policy
	Dim     int
	Data    []float32
	SlotIDs []int64 // keyed policy only; SentinelID marks tombstones
	NextID  int64   // keyed policy only
}

// check validates that a loaded snapshot matches the policy and
// dimension the index was opened with.
func (st *snapshotState) check(policy Policy, dimension int) error {
	if st.Policy != policy {
		return vecaterr.New(vecaterr.CodeIndexSnapshotCorrupt,
			"snapshot policy does not match configured policy",
			vecaterr.Field("snapshot_policy", string(st.Policy)),
			vecaterr.Field("configured_policy", string(policy)),
		)
	}
	if st.Dim != dimension {
		return vecaterr.New(vecaterr.CodeIndexSnapshotCorrupt,
			"snapshot dimension does not match configured dimension",
			vecaterr.Field("snapshot_dimension", st.Dim),
			vecaterr.FieldDimension(dimension),
		)
	}
	return nil
}

// writeSnapshot persists the state atomically: encode to a temp file in
// the same directory, fsync, then rename over the target path.
func writeSnapshot(path string, st *snapshotState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"creating snapshot directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"creating snapshot temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := encodeSnapshot(tmp, st); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"syncing snapshot")
	}
	if err := tmp.Close(); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"closing snapshot temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"renaming snapshot into place")
	}
	return nil
}

func encodeSnapshot(w io.Writer, st *snapshotState) error {
	var header bytes.Buffer
	header.Write(snapshotMagic)
	header.WriteByte(snapshotVersion)
	if _, err := w.Write(header.Bytes()); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"writing snapshot header")
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"creating snapshot compressor")
	}

	if err := gob.NewEncoder(zw).Encode(st); err != nil {
		_ = zw.Close()
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"encoding snapshot")
	}
	if err := zw.Close(); err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"flushing snapshot compressor")
	}
	return nil
}

// readSnapshot loads the snapshot at path. A missing file is not an
// error: it returns (nil, nil) so the caller creates a fresh index.
func readSnapshot(path string) (*snapshotState, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotIOFailure,
			"opening snapshot")
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, len(snapshotMagic)+1)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotCorrupt,
			"reading snapshot header")
	}
	if !bytes.Equal(header[:len(snapshotMagic)], snapshotMagic) {
		return nil, vecaterr.New(vecaterr.CodeIndexSnapshotCorrupt,
			"snapshot file has unknown magic", vecaterr.Field("path", path))
	}
	if header[len(snapshotMagic)] != snapshotVersion {
		return nil, vecaterr.New(vecaterr.CodeIndexSnapshotCorrupt,
			"unsupported snapshot version",
			vecaterr.Field("version", header[len(snapshotMagic)]),
		)
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotCorrupt,
			"creating snapshot decompressor")
	}
	defer zr.Close()

	var st snapshotState
	if err := gob.NewDecoder(zr).Decode(&st); err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeIndexSnapshotCorrupt,
			"decoding snapshot")
	}
	return &st, nil
}
