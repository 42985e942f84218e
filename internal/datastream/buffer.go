// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datastream

import (
	"errors"
	"sort"
)

// Buffer is an in-memory FileWriter.  Databases are small enough to be
// assembled in memory before being atomically written out.
type Buffer struct {
	buf []byte
}

var _ FileWriter = &Buffer{}

func (b *Buffer) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *Buffer) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 || int(off)+len(p) > len(b.buf) {
		return 0, errors.New("writeAt out of bounds")
	}
	return copy(b.buf[off:int(off)+len(p)], p), nil
}

// Bytes returns the buffer contents.  The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

func (b *Buffer) Len() int {
	return len(b.buf)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
