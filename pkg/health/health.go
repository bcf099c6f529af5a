// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package health

// Stats exposes the current state of the catalog for monitoring and
// operator visibility. All fields are point-in-time snapshots safe to
// serialize to JSON.
//
// A vector/metadata count divergence marks a join-integrity defect
// (orphaned vectors or dangling metadata). It is surfaced here rather
// than failing reads.
type Stats struct {
	VectorCount   int64  `json:"vector_count"`
	MetadataCount int64  `json:"metadata_count"`
	Dimensions    int    `json:"dimensions"`
	IndexPolicy   string `json:"index_policy"`
	Consistent    bool   `json:"consistent"`
}
