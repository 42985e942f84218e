// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mmap provides read-only access to a database file, either by
// mapping it into memory or by reading it onto the heap.
package mmap

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// File is the read-only contents of a database file.
type File struct {
	data   []byte
	mapped bool
}

// Open maps the file at path into memory.  The mapping stays valid even if
// the file is later replaced or unlinked, until Close is called.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := stats.Size()
	if size == 0 {
		// mmap doesn't support zero-length mappings
		return &File{}, nil
	}
	if size > math.MaxInt32 {
		return nil, fmt.Errorf("%s too large to map: %d bytes", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap(%s): %w", path, err)
	}
	// lookups hop around the file; don't bother with readahead
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("madvise: %w", err)
	}

	return &File{
		data:   data,
		mapped: true,
	}, nil
}

// ReadFile reads the whole file at path onto the heap.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll(%s): %w", path, err)
	}
	return &File{data: data}, nil
}

// FromBytes wraps an in-memory database image.
func FromBytes(data []byte) *File {
	return &File{data: data}
}

// Data returns the file contents.  The slice must not be written to, and
// must not be used after Close.
func (f *File) Data() []byte {
	return f.data
}

// Mapped reports whether Data is backed by a memory mapping.
func (f *File) Mapped() bool {
	return f.mapped
}

// Close releases the mapping, if any.  It is safe to call more than once.
func (f *File) Close() error {
	data := f.data
	f.data = nil
	if !f.mapped || data == nil {
		return nil
	}
	f.mapped = false
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
