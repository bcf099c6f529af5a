// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vecat-dev/vecat/internal/catalog"
	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

func newPopulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "populate <file.json>",
		Short: "Bulk-load documents from a JSON file",
		Long: "Read a JSON array of documents (embedding, text, optional external_id, " +
			"category, tags) and load them through the catalog in one batch.",
		Args: cobra.ExactArgs(1),
		RunE: runPopulate,
	}
}

func runPopulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg)

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return vecaterr.Errorf(vecaterr.CodeCLIInputInvalid, "reading %s: %w", args[0], err)
	}

	var docs []catalog.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return vecaterr.Errorf(vecaterr.CodeCLIInputInvalid, "parsing %s: %w", args[0], err)
	}
	if len(docs) == 0 {
		return vecaterr.Errorf(vecaterr.CodeCLIInputInvalid, "%s contains no documents", args[0])
	}

	cat, closeStore, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Error("closing metadata store", "error", err)
		}
	}()

	recordIDs, err := cat.AddBatch(cmd.Context(), docs)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents\n", len(recordIDs))
	return err
}
