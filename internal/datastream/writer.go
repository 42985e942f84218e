// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datastream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	defaultBufferSize = 256 * 1024

	// MaxOffset is the largest position a Writer will hand out: offsets are
	// stored on disk as signed 32-bit integers.
	MaxOffset = math.MaxInt32

	nullStringLen = math.MaxUint32
)

var errOffsetOverflow = errors.New("database has grown too large (>2GB)")

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// Writer appends fixed-width values to a FileWriter.  The first error
// encountered is sticky: subsequent writes are no-ops and Err reports it.
type Writer struct {
	f   FileWriter
	w   *bufio.Writer
	off int64
	err error
}

func NewWriter(f FileWriter) *Writer {
	return &Writer{
		f: f,
		w: bufio.NewWriterSize(f, defaultBufferSize),
	}
}

// Pos returns the absolute offset the next write will land at.
func (w *Writer) Pos() int64 {
	return w.off
}

// Offset returns Pos as an on-disk offset, recording an error if the
// stream has outgrown the 32-bit offset space.
func (w *Writer) Offset() int32 {
	if w.off > MaxOffset {
		w.setErr(errOffsetOverflow)
		return 0
	}
	return int32(w.off)
}

func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.off += int64(n)
	if err != nil {
		w.setErr(fmt.Errorf("bufio.Write: %w", err))
	}
}

func (w *Writer) Int8(v int8) {
	w.write([]byte{byte(v)})
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Int8(1)
	} else {
		w.Int8(0)
	}
}

func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

func (w *Writer) Uint32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.write(buf[:])
}

func (w *Writer) String(s string) {
	if uint64(len(s)) >= nullStringLen {
		w.setErr(fmt.Errorf("string of length %d too long", len(s)))
		return
	}
	w.Uint32(uint32(len(s)))
	w.write([]byte(s))
}

func (w *Writer) StringList(l []string) {
	w.Uint32(uint32(len(l)))
	for _, s := range l {
		w.String(s)
	}
}

// StringMap writes m as a count followed by key/value pairs in sorted key order.
func (w *Writer) StringMap(m map[string]string) {
	keys := sortedKeys(m)
	w.Uint32(uint32(len(keys)))
	for _, k := range keys {
		w.String(k)
		w.String(m[k])
	}
}

// Int32List writes a count followed by each value.
func (w *Writer) Int32List(l []int32) {
	w.Uint32(uint32(len(l)))
	for _, v := range l {
		w.Int32(v)
	}
}

// PatchInt32 overwrites the 4 bytes at off, which must have already been
// written.  Buffered data is flushed first so the patch can't be clobbered.
func (w *Writer) PatchInt32(off int64, v int32) {
	if w.err != nil {
		return
	}
	if off < 0 || off+4 > w.off {
		w.setErr(fmt.Errorf("patch at %d outside of written range (%d)", off, w.off))
		return
	}
	if err := w.w.Flush(); err != nil {
		w.setErr(fmt.Errorf("bufio.Flush: %w", err))
		return
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	if _, err := w.f.WriteAt(buf[:], off); err != nil {
		w.setErr(fmt.Errorf("f.WriteAt: %w", err))
	}
}

// Flush writes any buffered data and returns the sticky error, if any.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.setErr(fmt.Errorf("bufio.Flush: %w", err))
	}
	return w.err
}
