//
// Tencent is pleased to support the open source community by making cradle-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// cradle-go is licensed under the Apache License Version 2.0.
//
//

// Package appdirs resolves the platform cache directory for an app.
package appdirs

import (
	"os"
	"path/filepath"
)

// UserCacheDir returns the per-user cache directory for appName,
// creating it if needed: $XDG_CACHE_HOME or ~/.cache on Unix,
// %LOCALAPPDATA% on Windows, ~/Library/Caches on macOS.
func UserCacheDir(appName string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		// Fall back to a directory under the working tree rather than
		// failing outright; headless environments often lack HOME.
		base = ".cache"
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
