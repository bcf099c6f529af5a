// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

// Package remote talks to an alternative network-hosted vector backend.
// The backend owns its own identifier space and consistency; this
// package only exposes the add/search/schema surface the server needs
// to proxy requests to it.
package remote

import "context"

// Document is one object to store in the remote backend.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Object is one search hit returned by the remote backend. Certainty
// is the backend's own similarity score, higher is closer; it is not
// comparable to local squared-L2 distances.
type Object struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Certainty float32 `json:"certainty"`
}

// Backend is the remote vector store surface.
type Backend interface {
	// EnsureSchema creates the object class if the backend does not
	// have it yet. Idempotent.
	EnsureSchema(ctx context.Context) error

	// Add stores one document.
	Add(ctx context.Context, doc Document) error

	// Search returns up to limit nearest objects for the query vector.
	Search(ctx context.Context, query []float32, limit int) ([]Object, error)
}
