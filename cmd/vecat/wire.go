// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package main

import (
	"time"

	"github.com/vecat-dev/vecat/internal/catalog"
	"github.com/vecat-dev/vecat/internal/config"
	"github.com/vecat-dev/vecat/internal/index"
	"github.com/vecat-dev/vecat/internal/remote"
	"github.com/vecat-dev/vecat/internal/store/sqlite"
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// openCatalog constructs the catalog from configuration: the vector
// index snapshot and the metadata database. The returned closer shuts
// the metadata store down.
func openCatalog(cfg *config.Config) (*catalog.Catalog, func() error, error) {
	policy := index.PolicyKeyed
	if cfg.Storage.IndexPolicy == "positional" {
		policy = index.PolicyPositional
	}

	idx, err := index.Open(cfg.Storage.VectorIndexPath, cfg.Storage.EmbeddingDimensions, policy)
	if err != nil {
		return nil, nil, vecaterr.Wrap(err, vecaterr.CodeCLISetupFailure, "opening vector index")
	}

	meta, err := sqlite.NewMetadataStore(cfg.Storage.MetadataDBPath)
	if err != nil {
		return nil, nil, vecaterr.Wrap(err, vecaterr.CodeCLISetupFailure, "opening metadata store")
	}

	return catalog.New(idx, meta), meta.Close, nil
}

// newRemoteBackend returns the configured remote backend, or nil when
// remote mode is disabled.
func newRemoteBackend(cfg *config.Config) remote.Backend {
	if !cfg.Remote.Enabled {
		return nil
	}

	return remote.NewClient(remote.Options{
		Endpoint: cfg.Remote.Endpoint,
		Class:    cfg.Remote.Class,
		Timeout:  time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
	})
}
