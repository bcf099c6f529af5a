// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vecat-dev/vecat/internal/server"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vecat service",
		Long:  "Load configuration, open the vector index and metadata store, and serve the HTTP API.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg)

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Networking.Listen = listen
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

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	})
	if err != nil {
		return err
	}

	backend := newRemoteBackend(cfg)
	srv.RegisterCatalog(cat, backend)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if backend != nil {
		if err := backend.EnsureSchema(ctx); err != nil {
			return err
		}
		slog.Info("remote backend configured", "endpoint", cfg.Remote.Endpoint, "class", cfg.Remote.Class)
	}

	slog.Info("starting vecat",
		"listen", cfg.Networking.Listen,
		"index_policy", cfg.Storage.IndexPolicy,
		"dimensions", cfg.Storage.EmbeddingDimensions,
	)

	return srv.Start(ctx)
}
