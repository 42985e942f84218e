// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/sycoca"
	"github.com/bpowers/sycoca/scan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sycoca.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
database:
  path: /tmp/x/sycoca.db
  global_path: ""
  strategy: file
  rebuild_timeout: 30s
data_dirs:
  - /opt/share
language: de
log:
  level: warn
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x/sycoca.db", cfg.Database.Path)
	assert.Equal(t, "", cfg.Database.GlobalPath)
	assert.Equal(t, "file", cfg.Database.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Database.RebuildTimeout)
	assert.Equal(t, 512, cfg.Database.EntryCacheSize)
	assert.Equal(t, "de", cfg.Language)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSize)
	assert.Equal(t, []string{"/opt/share"}, cfg.DataDirs)
	assert.Equal(t, scan.DirsFor([]string{"/opt/share"}), cfg.Dirs)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "/home/u/.local/share")
	t.Setenv("XDG_DATA_DIRS", "/usr/share")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, sycoca.DefaultGlobalPath, cfg.Database.GlobalPath)
	assert.Equal(t, 2*time.Minute, cfg.Database.RebuildTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"/home/u/.local/share", "/usr/share"}, cfg.DataDirs)
	assert.Equal(t, []string{"/home/u/.local/share/applications", "/usr/share/applications"}, cfg.Dirs.Applications)
}

func TestLoadConfig_Env(t *testing.T) {
	p := writeConfig(t, "log:\n  level: warn\n")
	t.Setenv("SYCOCA_LOG_LEVEL", "debug")
	t.Setenv("SYCOCA_DATABASE_ENTRY_CACHE_SIZE", "7")

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Database.EntryCacheSize)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for name, content := range map[string]string{
		"strategy": "database:\n  strategy: mmapp\n",
		"timeout":  "database:\n  rebuild_timeout: 0s\n",
		"cache":    "database:\n  entry_cache_size: -1\n",
		"syntax":   "database: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("Debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
