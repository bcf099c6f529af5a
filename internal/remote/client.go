// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// Compile-time interface check.
var _ Backend = (*Client)(nil)

// Options configures a Client.
type Options struct {
	// Endpoint is the backend base URL, e.g. "http://localhost:8080".
	Endpoint string

	// Class is the object class documents are stored under.
	Class string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
}

// Client is a JSON-over-HTTP Backend implementation.
type Client struct {
	endpoint string
	class    string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a Client for the given backend.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		class:    opts.Class,
		apiKey:   opts.APIKey,
		http:     &http.Client{Timeout: timeout},
		logger:   slog.Default().With("component", "remote"),
	}
}

type schemaRequest struct {
	Class      string           `json:"class"`
	Properties []schemaProperty `json:"properties"`
}

type schemaProperty struct {
	Name     string   `json:"name"`
	DataType []string `json:"dataType"`
}

// EnsureSchema creates the object class unless it already exists.
func (c *Client) EnsureSchema(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/v1/schema/"+c.class, nil)
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeRemoteSchemaFailure, "checking remote schema")
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return vecaterr.Errorf(vecaterr.CodeRemoteSchemaFailure,
			"checking remote schema: unexpected status %d", status)
	}

	req := schemaRequest{
		Class: c.class,
		Properties: []schemaProperty{
			{Name: "id", DataType: []string{"string"}},
			{Name: "text", DataType: []string{"string"}},
			{Name: "embedding", DataType: []string{"number[]"}},
		},
	}

	status, _, err = c.do(ctx, http.MethodPost, "/v1/schema", req)
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeRemoteSchemaFailure, "creating remote schema")
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return vecaterr.Errorf(vecaterr.CodeRemoteSchemaFailure,
			"creating remote schema: unexpected status %d", status)
	}

	c.logger.Info("created remote schema", "class", c.class)
	return nil
}

type objectRequest struct {
	Class      string   `json:"class"`
	Properties Document `json:"properties"`
}

// Add stores one document under the configured class.
func (c *Client) Add(ctx context.Context, doc Document) error {
	status, _, err := c.do(ctx, http.MethodPost, "/v1/objects", objectRequest{
		Class:      c.class,
		Properties: doc,
	})
	if err != nil {
		return vecaterr.Wrap(err, vecaterr.CodeRemoteRequestFailure, "adding remote object")
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return vecaterr.Errorf(vecaterr.CodeRemoteRequestFailure,
			"adding remote object: unexpected status %d", status)
	}
	return nil
}

type searchRequest struct {
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit"`
}

type searchResponse struct {
	Results []Object `json:"results"`
}

// Search returns up to limit nearest objects.
func (c *Client) Search(ctx context.Context, query []float32, limit int) ([]Object, error) {
	path := fmt.Sprintf("/v1/classes/%s/search", c.class)
	status, body, err := c.do(ctx, http.MethodPost, path, searchRequest{
		Vector: query,
		Limit:  limit,
	})
	if err != nil {
		return nil, vecaterr.Wrap(err, vecaterr.CodeRemoteRequestFailure, "searching remote objects")
	}
	if status != http.StatusOK {
		return nil, vecaterr.Errorf(vecaterr.CodeRemoteRequestFailure,
			"searching remote objects: unexpected status %d", status)
	}

	var res searchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, vecaterr.Errorf(vecaterr.CodeRemoteResponseInvalid,
			"decoding remote search response: %w", err)
	}
	return res.Results, nil
}

// do sends one JSON request and returns the status code and body.
// Transport-level failures come back as errors; HTTP error statuses do
// not, so callers can branch on them.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}
