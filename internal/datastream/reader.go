// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datastream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrShortBuffer      = errors.New("read past end of data")
)

// Reader decodes values from an immutable byte slice.  Like Writer, the
// first error is sticky and every subsequent read returns a zero value.
type Reader struct {
	data []byte
	off  int64
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// At returns a Reader positioned at off, sharing the underlying data.
func (r *Reader) At(off int64) *Reader {
	nr := &Reader{data: r.data}
	nr.Seek(off)
	return nr
}

func (r *Reader) Len() int64 {
	return int64(len(r.data))
}

func (r *Reader) Pos() int64 {
	return r.off
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Seek positions the reader at the absolute offset off.
func (r *Reader) Seek(off int64) {
	if r.err != nil {
		return
	}
	if off < 0 || off > int64(len(r.data)) {
		r.setErr(fmt.Errorf("seek to %d (len %d): %w", off, len(r.data), ErrOffsetOutOfRange))
		return
	}
	r.off = off
}

func (r *Reader) remaining() int64 {
	return int64(len(r.data)) - r.off
}

func (r *Reader) next(n int64) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.setErr(fmt.Errorf("read of %d bytes at %d (len %d): %w", n, r.off, len(r.data), ErrShortBuffer))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Int8() int8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return int8(b[0])
}

func (r *Reader) Bool() bool {
	return r.Int8() != 0
}

func (r *Reader) Uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

// StringBytes returns the next string without copying it out of the
// underlying data.  The result must not be retained past the lifetime of
// the data (e.g. an mmap).
func (r *Reader) StringBytes() []byte {
	n := r.Uint32()
	if r.err != nil || n == nullStringLen {
		return nil
	}
	return r.next(int64(n))
}

func (r *Reader) String() string {
	return string(r.StringBytes())
}

// count reads a list length, rejecting counts that couldn't possibly fit in
// the remaining data given each element occupies at least minElemSize bytes.
func (r *Reader) count(minElemSize int64) int {
	n := int64(r.Uint32())
	if r.err != nil {
		return 0
	}
	if n*minElemSize > r.remaining() {
		r.setErr(fmt.Errorf("list of %d elements at %d exceeds data (len %d): %w", n, r.off, len(r.data), ErrShortBuffer))
		return 0
	}
	return int(n)
}

func (r *Reader) StringList() []string {
	n := r.count(4)
	if n == 0 {
		return nil
	}
	l := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		l = append(l, r.String())
	}
	return l
}

func (r *Reader) StringMap() map[string]string {
	n := r.count(8)
	if n == 0 {
		return nil
	}
	m := make(map[string]string, n)
	for i := 0; i < n && r.err == nil; i++ {
		k := r.String()
		m[k] = r.String()
	}
	return m
}

func (r *Reader) Int32List() []int32 {
	n := r.count(4)
	if n == 0 {
		return nil
	}
	l := make([]int32, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		l = append(l, r.Int32())
	}
	return l
}
