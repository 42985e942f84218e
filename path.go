// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvPath overrides the per-user database path.
	EnvPath = "SYCOCA_DB"
	// EnvStrategy overrides the read strategy ("mmap" or "file").
	EnvStrategy = "SYCOCA_STRATEGY"

	// DefaultGlobalPath is the system-wide database.
	DefaultGlobalPath = "/var/cache/sycoca/sycoca.db"
)

// DefaultPath returns the per-user database path under the user cache
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("os.UserCacheDir: %w", err)
	}
	return filepath.Join(dir, "sycoca", "sycoca.db"), nil
}

// LocalPath resolves the per-user database path: SYCOCA_DB, then the
// configured path, then DefaultPath.
func LocalPath(configured string) (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	if configured != "" {
		return configured, nil
	}
	return DefaultPath()
}

// candidatePaths lists the files to try, in order.
func (o *options) candidatePaths() []string {
	var paths []string
	if local, err := LocalPath(o.path); err == nil {
		paths = append(paths, local)
	} else {
		o.logger.Warn("no per-user database path", "err", err)
	}
	if o.globalPath != "" && (len(paths) == 0 || paths[0] != o.globalPath) {
		paths = append(paths, o.globalPath)
	}
	return paths
}

func (o *options) readStrategy() Strategy {
	if o.strategySet {
		return o.strategy
	}
	if s, ok := ParseStrategy(os.Getenv(EnvStrategy)); ok {
		return s
	}
	return o.strategy
}
