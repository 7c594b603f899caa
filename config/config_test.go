//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DiskCache.Directory)
	assert.Positive(t, cfg.DiskCache.SizeLimit)
	assert.Positive(t, cfg.MemoryCache.UnusedSizeLimit)
	// Pool sizes default to zero here; the background system fills in
	// its own defaults.
	assert.Zero(t, cfg.Pools.CPU.Workers)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cradle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
disk_cache:
  directory: /tmp/cradle-test
  size_limit: 1048576
memory_cache:
  unused_size_limit: 4096
pools:
  cpu:
    workers: 3
  disk_read:
    workers: 1
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cradle-test", cfg.DiskCache.Directory)
	assert.Equal(t, int64(1048576), cfg.DiskCache.SizeLimit)
	assert.Equal(t, int64(4096), cfg.MemoryCache.UnusedSizeLimit)
	assert.Equal(t, 3, cfg.Pools.CPU.Workers)
	assert.Equal(t, 1, cfg.Pools.DiskRead.Workers)
	// Unspecified keys keep defaults.
	assert.Zero(t, cfg.Pools.HTTP.Workers)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cradle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
memory_cache:
  unused_size_limit: 99
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.MemoryCache.UnusedSizeLimit)
	assert.Positive(t, cfg.DiskCache.SizeLimit)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("disk_cache: ["), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
