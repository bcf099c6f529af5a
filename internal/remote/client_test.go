// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecat-dev/vecat/internal/remote"
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

func TestEnsureSchemaCreatesWhenMissing(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/schema/Vector":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/schema":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Vector", req["class"])
			created = true
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	c := remote.NewClient(remote.Options{Endpoint: srv.URL, Class: "Vector"})
	require.NoError(t, c.EnsureSchema(context.Background()))
	assert.True(t, created)
}

func TestEnsureSchemaIdempotentWhenPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := remote.NewClient(remote.Options{Endpoint: srv.URL, Class: "Vector"})
	require.NoError(t, c.EnsureSchema(context.Background()))
}

func TestAddSendsObjectWithAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/objects", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Class      string          `json:"class"`
			Properties remote.Document `json:"properties"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Vector", req.Class)
		assert.Equal(t, "doc-1", req.Properties.ID)
		assert.Equal(t, []float32{1, 0}, req.Properties.Embedding)

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := remote.NewClient(remote.Options{Endpoint: srv.URL, Class: "Vector", APIKey: "secret"})
	err := c.Add(context.Background(), remote.Document{
		ID: "doc-1", Text: "hello", Embedding: []float32{1, 0},
	})
	require.NoError(t, err)
}

func TestAddUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := remote.NewClient(remote.Options{Endpoint: srv.URL, Class: "Vector"})
	err := c.Add(context.Background(), remote.Document{ID: "doc-1", Text: "hello"})
	require.Error(t, err)
	assert.True(t, vecaterr.IsUpstreamFailure(err))
}

func TestSearchDecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/classes/Vector/search", r.URL.Path)

		var req struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Limit)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": "doc-1", "text": "hello", "certainty": 0.97},
				{"id": "doc-2", "text": "world", "certainty": 0.42},
			},
		})
	}))
	defer srv.Close()

	c := remote.NewClient(remote.Options{Endpoint: srv.URL, Class: "Vector"})
	objs, err := c.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "doc-1", objs[0].ID)
	assert.Equal(t, "hello", objs[0].Text)
	assert.InDelta(t, 0.97, objs[0].Certainty, 1e-6)
}

func TestSearchInvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := remote.NewClient(remote.Options{Endpoint: srv.URL, Class: "Vector"})
	_, err := c.Search(context.Background(), []float32{1, 0}, 3)
	require.Error(t, err)
	assert.Equal(t, vecaterr.CodeRemoteResponseInvalid, vecaterr.CodeOf(err))
}

func TestTransportFailure(t *testing.T) {
	c := remote.NewClient(remote.Options{Endpoint: "http://127.0.0.1:1", Class: "Vector"})
	err := c.Add(context.Background(), remote.Document{ID: "doc-1", Text: "hello"})
	require.Error(t, err)
	assert.True(t, vecaterr.IsUpstreamFailure(err))
}
