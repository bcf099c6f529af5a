// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vecat Contributors

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

// writeTestConfig creates a config pointing at a fresh data directory
// with a small dimensionality for test vectors.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "vecat.yaml")
	content := fmt.Sprintf(`
data_dir: %q
storage:
  embedding_dimensions: 4
  index_policy: keyed
`, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath
}

func TestRootListsSubcommands(t *testing.T) {
	out, err := runCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "start")
	assert.Contains(t, out, "populate")
	assert.Contains(t, out, "dump")
	assert.Contains(t, out, "version")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vecat")
	assert.Contains(t, out, "commit")
}

func TestPopulateThenDump(t *testing.T) {
	cfgPath := writeTestConfig(t)

	docsPath := filepath.Join(t.TempDir(), "docs.json")
	docs := `[
  {"embedding": [1, 0, 0, 0], "text": "one", "category": "news", "tags": ["a"]},
  {"embedding": [0, 1, 0, 0], "text": "two"},
  {"embedding": [1, 1, 0, 0], "text": "three"}
]`
	require.NoError(t, os.WriteFile(docsPath, []byte(docs), 0o600))

	out, err := runCommand(t, "populate", "--config", cfgPath, docsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 3 documents")

	out, err = runCommand(t, "dump", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "vectors:         3")
	assert.Contains(t, out, "metadata rows:   3")
	assert.Contains(t, out, "consistent:      true")
	assert.Contains(t, out, `text="one"`)
}

func TestPopulateRejectsMissingFile(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "populate", "--config", cfgPath, "/nonexistent/docs.json")
	require.Error(t, err)
}

func TestPopulateRejectsEmptyArray(t *testing.T) {
	cfgPath := writeTestConfig(t)

	docsPath := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(docsPath, []byte("[]"), 0o600))

	_, err := runCommand(t, "populate", "--config", cfgPath, docsPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no documents")
}

func TestPopulateRejectsWrongDimension(t *testing.T) {
	cfgPath := writeTestConfig(t)

	docsPath := filepath.Join(t.TempDir(), "docs.json")
	docs := `[{"embedding": [1, 0], "text": "short"}]`
	require.NoError(t, os.WriteFile(docsPath, []byte(docs), 0o600))

	_, err := runCommand(t, "populate", "--config", cfgPath, docsPath)
	require.Error(t, err)
}

func TestStartRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vecat.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  index_policy: bogus\n"), 0o600))

	_, err := runCommand(t, "start", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index_policy")
}
