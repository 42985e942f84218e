// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type testEnv struct {
	config string
	db     string
	data   string
}

// newTestEnv lays out a small data directory and a config pointing at
// it.  Every source is backdated so incremental builds see it as old.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("SYCOCA_DB", "")
	t.Setenv("SYCOCA_STRATEGY", "")
	dir := t.TempDir()
	te := &testEnv{
		config: filepath.Join(dir, "sycoca.yaml"),
		db:     filepath.Join(dir, "cache", "sycoca.db"),
		data:   filepath.Join(dir, "share"),
	}
	files := map[string]string{
		"applications/kate.desktop":
			"[Desktop Entry]\nName=Kate\nExec=kate\nMimeType=text/plain;\nInitialPreference=8\n",
		"applications/kwrite.desktop":
			"[Desktop Entry]\nName=KWrite\nExec=kwrite\nMimeType=text/plain;\n",
		"applications/Development/.directory":
			"[Desktop Entry]\nName=Development\n",
		"applications/Development/kdevelop.desktop":
			"[Desktop Entry]\nName=KDevelop\nExec=kdevelop\n",
		"kservicetypes5/readonlypart.desktop":
			"[Desktop Entry]\nType=ServiceType\nX-KDE-ServiceType=KParts/ReadOnlyPart\n",
		"mimelnk/text/plain.desktop":
			"[Desktop Entry]\nType=MimeType\nMimeType=text/plain\nPatterns=*.txt;\n",
	}
	for p, content := range files {
		p = filepath.Join(te.data, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	te.backdate(t)

	config := fmt.Sprintf("database:\n  path: %s\n  global_path: \"\"\ndata_dirs:\n  - %s\nlog:\n  level: error\n", te.db, te.data)
	require.NoError(t, os.WriteFile(te.config, []byte(config), 0644))
	return te
}

func (te *testEnv) backdate(t *testing.T) {
	t.Helper()
	old := time.Now().Add(-time.Hour)
	require.NoError(t, filepath.Walk(te.data, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return os.Chtimes(p, old, old)
	}))
}

func (te *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", te.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestBuild(t *testing.T) {
	te := newTestEnv(t)

	out, err := te.run(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+te.db)
	info, err := os.Stat(te.db)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0444), info.Mode().Perm())

	out, err = te.run(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")

	out, err = te.run(t, "build", "--noincremental")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote ")

	// a touched source makes the next build a real one
	now := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(te.data, "applications", "kate.desktop"), now, now))
	out, err = te.run(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote ")

	alt := filepath.Join(t.TempDir(), "alt.db")
	out, err = te.run(t, "build", "-o", alt)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+alt)
	assert.FileExists(t, alt)
}

func TestBuild_GlobalUnset(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.run(t, "build", "--global")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.run(t, "build")
	require.NoError(t, err)

	out, err := te.run(t, "info", "--yaml")
	require.NoError(t, err)
	var info Info
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, te.db, info.Path)
	assert.Equal(t, "ok", info.State)
	assert.Equal(t, 1, info.ServiceTypes)
	assert.Equal(t, 1, info.MimeTypes)
	assert.Equal(t, 3, info.Services)
	assert.Equal(t, 2, info.ServiceGroups)
	assert.Contains(t, info.ResourceDirs, filepath.Join(te.data, "applications"))

	out, err = te.run(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "services:         3")
}

func TestLookup(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.run(t, "build")
	require.NoError(t, err)

	out, err := te.run(t, "lookup", "kate.desktop")
	require.NoError(t, err)
	var v struct {
		Path  string         `yaml:"path"`
		Type  string         `yaml:"type"`
		Entry map[string]any `yaml:"entry"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &v))
	assert.Equal(t, "kate.desktop", v.Path)
	assert.Equal(t, "Service", v.Type)
	assert.Equal(t, "Kate", v.Entry["name"])
	assert.Equal(t, "kate", v.Entry["exec"])

	out, err = te.run(t, "lookup", "--menu-id", "Development-kdevelop.desktop")
	require.NoError(t, err)
	assert.Contains(t, out, "name: KDevelop")

	out, err = te.run(t, "lookup", "--name", "kwrite")
	require.NoError(t, err)
	assert.Contains(t, out, "path: kwrite.desktop")

	out, err = te.run(t, "lookup", "--type", "text/plain")
	require.NoError(t, err)
	assert.Contains(t, out, "type: MimeType")
	assert.Contains(t, out, "'*.txt'")

	out, err = te.run(t, "lookup", "--group", "Development")
	require.NoError(t, err)
	assert.Contains(t, out, "Development/kdevelop.desktop")

	_, err = te.run(t, "lookup", "nope.desktop")
	assert.Error(t, err)
	_, err = te.run(t, "lookup", "--name", "--type", "kate")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.run(t, "build")
	require.NoError(t, err)

	out, err := te.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "Development/kdevelop.desktop\nkate.desktop\nkwrite.desktop\n", out)

	out, err = te.run(t, "list", "--kind", "mimetypes")
	require.NoError(t, err)
	assert.Equal(t, "text/plain\n", out)

	out, err = te.run(t, "list", "-k", "groups")
	require.NoError(t, err)
	assert.Equal(t, "/\nDevelopment/\n", out)

	_, err = te.run(t, "list", "--kind", "bogus")
	assert.Error(t, err)
}

func TestOffers(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.run(t, "build")
	require.NoError(t, err)

	out, err := te.run(t, "offers", "text/plain")
	require.NoError(t, err)
	assert.Regexp(t, `(?s)^8\s+Kate\s+kate\.desktop\s+text/plain\n1\s+KWrite\s+kwrite\.desktop\s+text/plain\n$`, out)

	fileOut, err := te.run(t, "offers", "--file", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, out, fileOut)

	_, err = te.run(t, "offers", "--file", "image.png")
	assert.Error(t, err)
}

func TestMenu(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.run(t, "build")
	require.NoError(t, err)

	out, err := te.run(t, "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "Development/\n  KDevelop (Development-kdevelop.desktop)\n")
	assert.Contains(t, out, "Kate (kate.desktop)\n")

	_, err = te.run(t, "menu", "Games")
	assert.Error(t, err)
}
