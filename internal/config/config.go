// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	vecaterr "github.com/vecat-dev/vecat/pkg/errors"
)

// Config is the top-level Vecat configuration.
type Config struct {
	DataDir    string           `mapstructure:"data_dir"`
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Remote     RemoteConfig     `mapstructure:"remote"`
}

// NetworkingConfig controls how Vecat listens for connections.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig locates the two stores and fixes the index geometry.
// Empty paths are derived from data_dir at load time.
type StorageConfig struct {
	VectorIndexPath     string `mapstructure:"vector_index_path"`
	MetadataDBPath      string `mapstructure:"metadata_db_path"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
	IndexPolicy         string `mapstructure:"index_policy"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// RemoteConfig points the server at an alternative remote vector
// backend instead of the local catalog for add and search.
type RemoteConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	Class          string `mapstructure:"class"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix VECAT_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("networking.listen", "127.0.0.1:18890")
	v.SetDefault("networking.cors_origins", []string{"*"})
	v.SetDefault("storage.embedding_dimensions", 768)
	v.SetDefault("storage.index_policy", "keyed")
	v.SetDefault("logging.level", "info")
	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.class", "Vector")
	v.SetDefault("remote.timeout_seconds", 30)

	// Environment
	v.SetEnvPrefix("VECAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, vecaterr.Errorf(vecaterr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = filepath.Join(cfg.DataDir, "vector_index.snap")
	}
	if cfg.Storage.MetadataDBPath == "" {
		cfg.Storage.MetadataDBPath = filepath.Join(cfg.DataDir, "metadata.db")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateRemote()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
		return errs
	}

	host, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
		return errs
	}
	_ = host // host can be empty (e.g., ":8080"), which is valid

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.EmbeddingDimensions <= 0 {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: storage.embedding_dimensions must be greater than 0, got %d",
			c.Storage.EmbeddingDimensions,
		))
	}

	validPolicies := map[string]bool{"positional": true, "keyed": true}
	if !validPolicies[c.Storage.IndexPolicy] {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: storage.index_policy must be one of [positional, keyed], got %q",
			c.Storage.IndexPolicy,
		))
	}

	if c.Storage.VectorIndexPath == "" {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue, "config: storage.vector_index_path must not be empty"))
	}
	if c.Storage.MetadataDBPath == "" {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue, "config: storage.metadata_db_path must not be empty"))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q",
			c.Logging.Level,
		))
	}

	return errs
}

func (c *Config) validateRemote() []error {
	var errs []error

	if !c.Remote.Enabled {
		return errs
	}

	if c.Remote.Endpoint == "" {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: remote.endpoint must not be empty when remote.enabled is true"))
	} else if u, err := url.Parse(c.Remote.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: remote.endpoint must be an absolute URL, got %q",
			c.Remote.Endpoint,
		))
	}

	if c.Remote.Class == "" {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: remote.class must not be empty when remote.enabled is true"))
	}

	if c.Remote.TimeoutSeconds <= 0 {
		errs = append(errs, vecaterr.Errorf(vecaterr.CodeConfigValidateInvalidValue,
			"config: remote.timeout_seconds must be greater than 0, got %d",
			c.Remote.TimeoutSeconds,
		))
	}

	return errs
}

// defaultDataDir returns ~/.local/share/vecat, falling back to a
// relative directory when the home directory cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vecat-data"
	}
	return filepath.Join(home, ".local", "share", "vecat")
}
