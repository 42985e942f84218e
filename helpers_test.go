// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func app(path, name string) *Service {
	s := NewService(path)
	s.Name = name
	s.Exec = name
	return s
}

func src(path string, fields map[string]string) *Source {
	return &Source{Path: path, Fields: fields}
}

// buildAB returns factories holding the two services "app/a.desktop" (A)
// and "app/b.desktop" (B), both in the root menu group.
func buildAB() *BuildFactories {
	fs := NewBuildFactories()
	fs.Services.AddEntry(app("app/a.desktop", "A"))
	fs.Services.AddEntry(app("app/b.desktop", "B"))
	fs.ServiceGroups.AddChild(RootGroup, "app/a.desktop")
	fs.ServiceGroups.AddChild(RootGroup, "app/b.desktop")
	return fs
}

func writeDB(t *testing.T, fs *BuildFactories) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sycoca.db")
	writeDBTo(t, fs, path)
	return path
}

func writeDBTo(t *testing.T, fs *BuildFactories, path string) {
	t.Helper()
	b := NewBuilder()
	fs.AddTo(b)
	require.NoError(t, b.WriteFile(path))
}

// openTestDB opens path with rebuilds and the global fallback disabled.
func openTestDB(t *testing.T, path string, opts ...Option) (*Database, *Factories) {
	t.Helper()
	t.Setenv(EnvPath, "")
	t.Setenv(EnvStrategy, "")
	opts = append([]Option{WithPath(path), WithGlobalPath(""), WithInvoker(nil)}, opts...)
	db := New(opts...)
	t.Cleanup(func() { _ = db.Close() })
	return db, NewFactories(db)
}

// patchFile rewrites the big-endian int32 at off in a copy of the
// database at path, returning the copy's path.
func patchFile(t *testing.T, path string, patches map[int64]int32) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for off, v := range patches {
		binary.BigEndian.PutUint32(data[off:], uint32(v))
	}
	out := filepath.Join(t.TempDir(), "patched.db")
	require.NoError(t, os.WriteFile(out, data, 0644))
	return out
}

func readInt32(t *testing.T, path string, off int64) int32 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return int32(binary.BigEndian.Uint32(data[off:]))
}

// factoryOffset finds id in the factory directory of the database at
// path.
func factoryOffset(t *testing.T, path string, id FactoryID) int64 {
	t.Helper()
	for off := int64(4); ; off += 8 {
		got := FactoryID(readInt32(t, path, off))
		require.NotZero(t, got, "factory %s not in directory", id)
		if got == id {
			return int64(readInt32(t, path, off+4))
		}
	}
}

type countingInvoker struct {
	calls int
	fn    func() error
}

func (c *countingInvoker) Rebuild(ctx context.Context) error {
	c.calls++
	if c.fn == nil {
		return nil
	}
	return c.fn()
}
