// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print a condensed view of the stored data",
		Long:  "Show index geometry, store counts, consistency, and a sample of metadata records.",
		RunE:  runDump,
	}

	cmd.Flags().Int("sample", 5, "number of sample records to show")

	return cmd
}

func runDump(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg)

	cat, closeStore, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	stats, err := cat.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "index policy:    %s\n", stats.IndexPolicy)
	fmt.Fprintf(out, "dimensions:      %d\n", stats.Dimensions)
	fmt.Fprintf(out, "vectors:         %d\n", stats.VectorCount)
	fmt.Fprintf(out, "metadata rows:   %d\n", stats.MetadataCount)
	fmt.Fprintf(out, "consistent:      %t\n", stats.Consistent)

	sample, _ := cmd.Flags().GetInt("sample")
	records, err := cat.Metadata(ctx, "")
	if err != nil {
		return err
	}

	shown := 0
	for _, rec := range records {
		if shown >= sample {
			break
		}
		fmt.Fprintf(out, "record %d: embed_id=%d text=%q category=%q tags=%v\n",
			rec.RecordID, rec.EmbedID, rec.Text, rec.Category, rec.Tags)

		if _, err := cat.Vector(ctx, rec.EmbedID); err != nil {
			if vecaterr.IsNotFound(err) {
				fmt.Fprintf(out, "  warning: embed_id %d has no vector\n", rec.EmbedID)
			} else {
				return err
			}
		}
		shown++
	}

	return nil
}
