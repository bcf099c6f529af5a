// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vecat-dev/vecat/internal/catalog"
	"github.com/vecat-dev/vecat/internal/remote"
	"github.com/vecat-dev/vecat/internal/store"
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
	"github.com/vecat-dev/vecat/pkg/health"
)

// RegisterCatalog wires the catalog (and an optional remote backend)
// and registers the REST routes. When backend is non-nil, add and
// search are served by the remote backend; every other route stays
// local.
func (s *Server) RegisterCatalog(cat *catalog.Catalog, backend remote.Backend) {
	s.catalog = cat
	s.remote = backend
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	if s.remote != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "add-vector",
			Method:      http.MethodPost,
			Path:        "/api/v1/vectors",
			Summary:     "Add a vector to the remote backend",
			Tags:        []string{"vectors"},
		}, s.handleRemoteAdd)

		huma.Register(s.api, huma.Operation{
			OperationID: "search",
			Method:      http.MethodPost,
			Path:        "/api/v1/search",
			Summary:     "Search the remote backend",
			Tags:        []string{"search"},
		}, s.handleRemoteSearch)
	} else {
		huma.Register(s.api, huma.Operation{
			OperationID: "add-vector",
			Method:      http.MethodPost,
			Path:        "/api/v1/vectors",
			Summary:     "Add a vector with metadata",
			Tags:        []string{"vectors"},
		}, s.handleAdd)

		huma.Register(s.api, huma.Operation{
			OperationID: "search",
			Method:      http.MethodPost,
			Path:        "/api/v1/search",
			Summary:     "Search nearest vectors",
			Tags:        []string{"search"},
		}, s.handleSearch)
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "add-vectors-batch",
		Method:      http.MethodPost,
		Path:        "/api/v1/vectors/batch",
		Summary:     "Add several vectors in one call",
		Tags:        []string{"vectors"},
	}, s.handleAddBatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-bulk",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/bulk",
		Summary:     "Run several searches concurrently",
		Tags:        []string{"search"},
	}, s.handleSearchBulk)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-vector",
		Method:      http.MethodDelete,
		Path:        "/api/v1/vectors/{recordID}",
		Summary:     "Delete a vector and its metadata",
		Tags:        []string{"vectors"},
	}, s.handleDelete)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-embedding",
		Method:      http.MethodGet,
		Path:        "/api/v1/vectors/{embedID}/embedding",
		Summary:     "Fetch a stored embedding",
		Tags:        []string{"vectors"},
	}, s.handleGetEmbedding)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-metadata",
		Method:      http.MethodGet,
		Path:        "/api/v1/metadata",
		Summary:     "List metadata records",
		Tags:        []string{"metadata"},
	}, s.handleListMetadata)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List known tags",
		Tags:        []string{"metadata"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "catalog-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Catalog counts and consistency",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "admin-reset",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reset",
		Summary:     "Drop all vectors and metadata",
		Tags:        []string{"admin"},
	}, s.handleReset)
}

// apiError converts a catalog/store error into the huma error carrying
// the status its code maps to.
func apiError(err error) error {
	return huma.NewError(vecaterr.HTTPStatus(err), err.Error())
}

// --- Request/Response types for huma ---

type documentBody struct {
	Embedding  []float32 `json:"embedding" minItems:"1" doc:"Embedding vector"`
	Text       string    `json:"text" minLength:"1" doc:"Document text"`
	ExternalID string    `json:"external_id,omitempty" doc:"Optional external identifier"`
	Category   string    `json:"category,omitempty" doc:"Optional category"`
	Tags       []string  `json:"tags,omitempty" doc:"Optional tags"`
}

func (b documentBody) document() catalog.Document {
	return catalog.Document{
		Embedding:  b.Embedding,
		Text:       b.Text,
		ExternalID: b.ExternalID,
		Category:   b.Category,
		Tags:       b.Tags,
	}
}

type addVectorInput struct {
	Body documentBody
}
type addVectorOutput struct {
	Body struct {
		RecordID int64 `json:"record_id" doc:"Metadata record id"`
	}
}

type addBatchInput struct {
	Body struct {
		Documents []documentBody `json:"documents" minItems:"1"`
	}
}
type addBatchOutput struct {
	Body struct {
		RecordIDs []int64 `json:"record_ids"`
	}
}

type searchInput struct {
	Body struct {
		Embedding []float32 `json:"embedding" minItems:"1" doc:"Query vector"`
		TopK      int       `json:"top_k,omitempty" minimum:"1" maximum:"1000" doc:"Result count, default 10"`
	}
}
type searchOutput struct {
	Body struct {
		Results []catalog.Result `json:"results"`
	}
}

type searchBulkInput struct {
	Body struct {
		Queries [][]float32 `json:"queries" minItems:"1" doc:"Query vectors"`
		TopK    int         `json:"top_k,omitempty" minimum:"1" maximum:"1000" doc:"Result count per query, default 10"`
	}
}
type searchBulkOutput struct {
	Body struct {
		Results [][]catalog.Result `json:"results"`
	}
}

type deleteVectorInput struct {
	RecordID int64 `path:"recordID"`
}
type deleteVectorOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type getEmbeddingInput struct {
	EmbedID int64 `path:"embedID"`
}
type getEmbeddingOutput struct {
	Body struct {
		EmbedID   int64     `json:"embed_id"`
		Embedding []float32 `json:"embedding"`
	}
}

type listMetadataInput struct {
	Category string `query:"category" doc:"Filter by category"`
}
type listMetadataOutput struct {
	Body struct {
		Records []*store.Metadata `json:"records"`
	}
}

type listTagsOutput struct {
	Body struct {
		Tags []store.Tag `json:"tags"`
	}
}

type statusOutput struct {
	Body health.Stats
}

type resetOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type remoteAddInput struct {
	Body struct {
		ID        string    `json:"id,omitempty" doc:"Object id; generated when empty"`
		Text      string    `json:"text" minLength:"1"`
		Embedding []float32 `json:"embedding" minItems:"1"`
	}
}
type remoteAddOutput struct {
	Body struct {
		ID string `json:"id"`
	}
}

type remoteSearchOutput struct {
	Body struct {
		Results []remote.Object `json:"results"`
	}
}

// --- Handlers ---

func (s *Server) handleAdd(ctx context.Context, input *addVectorInput) (*addVectorOutput, error) {
	recordID, err := s.catalog.Add(ctx, input.Body.document())
	if err != nil {
		return nil, apiError(err)
	}
	out := &addVectorOutput{}
	out.Body.RecordID = recordID
	return out, nil
}

func (s *Server) handleAddBatch(ctx context.Context, input *addBatchInput) (*addBatchOutput, error) {
	docs := make([]catalog.Document, len(input.Body.Documents))
	for i, b := range input.Body.Documents {
		docs[i] = b.document()
	}

	recordIDs, err := s.catalog.AddBatch(ctx, docs)
	if err != nil {
		return nil, apiError(err)
	}
	out := &addBatchOutput{}
	out.Body.RecordIDs = recordIDs
	return out, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	topK := input.Body.TopK
	if topK == 0 {
		topK = 10
	}

	results, err := s.catalog.Search(ctx, input.Body.Embedding, topK)
	if err != nil {
		return nil, apiError(err)
	}
	out := &searchOutput{}
	out.Body.Results = results
	return out, nil
}

// handleSearchBulk fans the queries out concurrently; search only takes
// read locks, so the queries do not serialize against each other.
func (s *Server) handleSearchBulk(ctx context.Context, input *searchBulkInput) (*searchBulkOutput, error) {
	topK := input.Body.TopK
	if topK == 0 {
		topK = 10
	}

	results := make([][]catalog.Result, len(input.Body.Queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range input.Body.Queries {
		g.Go(func() error {
			res, err := s.catalog.Search(gctx, query, topK)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apiError(err)
	}

	out := &searchBulkOutput{}
	out.Body.Results = results
	return out, nil
}

func (s *Server) handleDelete(ctx context.Context, input *deleteVectorInput) (*deleteVectorOutput, error) {
	if err := s.catalog.Delete(ctx, input.RecordID); err != nil {
		return nil, apiError(err)
	}
	out := &deleteVectorOutput{}
	out.Body.Status = "deleted"
	return out, nil
}

func (s *Server) handleGetEmbedding(ctx context.Context, input *getEmbeddingInput) (*getEmbeddingOutput, error) {
	embedding, err := s.catalog.Vector(ctx, input.EmbedID)
	if err != nil {
		return nil, apiError(err)
	}
	out := &getEmbeddingOutput{}
	out.Body.EmbedID = input.EmbedID
	out.Body.Embedding = embedding
	return out, nil
}

func (s *Server) handleListMetadata(ctx context.Context, input *listMetadataInput) (*listMetadataOutput, error) {
	records, err := s.catalog.Metadata(ctx, input.Category)
	if err != nil {
		return nil, apiError(err)
	}
	out := &listMetadataOutput{}
	out.Body.Records = records
	return out, nil
}

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*listTagsOutput, error) {
	tags, err := s.catalog.Tags(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	out := &listTagsOutput{}
	out.Body.Tags = tags
	return out, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &statusOutput{Body: stats}, nil
}

func (s *Server) handleReset(ctx context.Context, _ *struct{}) (*resetOutput, error) {
	if err := s.catalog.Reset(ctx); err != nil {
		return nil, apiError(err)
	}
	out := &resetOutput{}
	out.Body.Status = "reset"
	return out, nil
}

func (s *Server) handleRemoteAdd(ctx context.Context, input *remoteAddInput) (*remoteAddOutput, error) {
	id := input.Body.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := s.remote.Add(ctx, remote.Document{
		ID:        id,
		Text:      input.Body.Text,
		Embedding: input.Body.Embedding,
	})
	if err != nil {
		return nil, apiError(err)
	}
	out := &remoteAddOutput{}
	out.Body.ID = id
	return out, nil
}

func (s *Server) handleRemoteSearch(ctx context.Context, input *searchInput) (*remoteSearchOutput, error) {
	topK := input.Body.TopK
	if topK == 0 {
		topK = 10
	}

	objects, err := s.remote.Search(ctx, input.Body.Embedding, topK)
	if err != nil {
		return nil, apiError(err)
	}
	out := &remoteSearchOutput{}
	out.Body.Results = objects
	return out, nil
}
