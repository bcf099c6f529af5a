// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vecat-dev/vecat/internal/config"
)

// NewRootCmd creates the root vecat command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vecat",
		Short:         "Vecat — vector catalog service",
		Long:          "Vecat stores embeddings next to their relational metadata and serves nearest-neighbor search over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags; subcommands resolve them through loadConfig.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newPopulateCmd(),
		newDumpCmd(),
		newVersionCmd(),
	)

	return root
}

// resolveConfigPath returns the config file to load: the --config flag
// if given, otherwise the first existing standard location, otherwise a
// freshly bootstrapped default. Empty means run on built-in defaults.
func resolveConfigPath(cmd *cobra.Command) string {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		return cfgFile
	}

	candidates := []string{"vecat.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "vecat", "vecat.yaml"))
	}
	candidates = append(candidates, filepath.Join("/etc", "vecat", "vecat.yaml"))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	// No config found anywhere: bootstrap a commented default.
	return config.BootstrapConfig()
}

// loadConfig resolves the config path, loads it, and applies the global
// flag overrides (flag > env > file > defaults).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath := resolveConfigPath(cmd)
	config.WarnInsecurePermissions(cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
		cfg.Storage.VectorIndexPath = filepath.Join(dataDir, "vector_index.snap")
		cfg.Storage.MetadataDBPath = filepath.Join(dataDir, "metadata.db")
	}

	return cfg, nil
}

// setupLogging installs the default slog logger at the configured
// level. The --verbose flag forces debug.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
