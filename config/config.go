//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package config defines the configuration the computation core
// recognizes and its YAML loading.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/cradle-go/internal/appdirs"
)

// appName names the per-user cache directory used by default.
const appName = "cradle"

// Default byte budgets.
const (
	defaultDiskCacheSizeLimit        = 1 << 30 // 1 GiB
	defaultMemoryCacheUnusedSizeLimit = 256 << 20
)

// DiskCacheConfig configures the persistent cache.
type DiskCacheConfig struct {
	// Directory defaults to the platform per-user cache directory under
	// the app name.
	Directory string `yaml:"directory"`
	// SizeLimit is the byte budget across all entries.
	SizeLimit int64 `yaml:"size_limit"`
}

// MemoryCacheConfig configures the in-process cache.
type MemoryCacheConfig struct {
	// UnusedSizeLimit is the byte budget for unreferenced entries.
	UnusedSizeLimit int64 `yaml:"unused_size_limit"`
}

// PoolConfig sizes one worker pool.
type PoolConfig struct {
	Workers int `yaml:"workers"`
}

// PoolsConfig sizes the standard pools. Zero worker counts take the
// built-in defaults.
type PoolsConfig struct {
	CPU       PoolConfig `yaml:"cpu"`
	HTTP      PoolConfig `yaml:"http"`
	DiskRead  PoolConfig `yaml:"disk_read"`
	DiskWrite PoolConfig `yaml:"disk_write"`
}

// Config is the full configuration of the core.
type Config struct {
	DiskCache   DiskCacheConfig   `yaml:"disk_cache"`
	MemoryCache MemoryCacheConfig `yaml:"memory_cache"`
	Pools       PoolsConfig       `yaml:"pools"`
}

// Default returns the configuration used when nothing is specified.
func Default() (Config, error) {
	dir, err := appdirs.UserCacheDir(appName)
	if err != nil {
		return Config{}, fmt.Errorf("resolving cache directory: %w", err)
	}
	return Config{
		DiskCache: DiskCacheConfig{
			Directory: dir,
			SizeLimit: defaultDiskCacheSizeLimit,
		},
		MemoryCache: MemoryCacheConfig{
			UnusedSizeLimit: defaultMemoryCacheUnusedSizeLimit,
		},
	}, nil
}

// Load reads a YAML configuration file over the defaults. Absent keys
// keep their default values.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
