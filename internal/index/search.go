// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package index

import "sort"

// squaredL2 returns the squared Euclidean distance between a and b.
// Both slices must have the same length; callers validate dimensions.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// nearestK sorts hits ascending by distance (ties broken by id for
// determinism), truncates to k, and pads with sentinel hits so the
// result always has length k.
func nearestK(hits []Hit, k int) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	for len(hits) < k {
		hits = append(hits, Hit{ID: SentinelID})
	}
	return hits
}
