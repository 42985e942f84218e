// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package dict implements the hashed string index stored in sycoca
// databases.
//
// A dict maps key strings to entry offsets.  It is built with a
// "positional diversity hash": at build time we greedily pick a short list
// of signed character positions that best spread the key set over the
// table, and at lookup time we replay exactly those positions over the
// query.  On disk a dict looks like:
//
//	hashTableSize  uint32
//	hashPositions  uint32 count, repeated int32
//	hashTable      repeated int32[hashTableSize]
//	duplicates     repeated { entryOffset int32, key string }, 0-terminated
//
// A slot of 0 is empty, a positive slot is the offset of the only entry
// hashing there, and a negative slot is the negated offset of a duplicate
// chain.  Lookups are unauthenticated: a hit may belong to a different key
// that aliases the same slot, so callers must compare the key of the entry
// they load against the key they searched for.
package dict

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bpowers/sycoca/internal/datastream"
	"github.com/bpowers/sycoca/internal/unsafestring"
)

var (
	// ErrCorrupt is returned when a dict's header or table is structurally
	// implausible.
	ErrCorrupt = errors.New("dict: corrupt")

	errUnsavedPayload = errors.New("dict: entry offset is 0, entry was not saved before the dict")
)

// Payload is anything with a stable position in the database: entries
// are added to a dict before they're written, so their offsets are only
// read at Save time.
type Payload interface {
	Offset() int32
}

type stringEntry struct {
	key     string
	payload Payload
}

// Builder accumulates key/payload pairs and writes them out as a dict.
type Builder struct {
	entries []stringEntry
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add registers key -> payload.  Duplicate keys are allowed; every
// payload survives in the key's duplicate chain.
func (b *Builder) Add(key string, payload Payload) {
	b.entries = append(b.entries, stringEntry{key: key, payload: payload})
}

// Remove drops every payload registered under key.
func (b *Builder) Remove(key string) {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.key != key {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(b.entries); i++ {
		b.entries[i] = stringEntry{}
	}
	b.entries = kept
}

func (b *Builder) Count() int {
	return len(b.entries)
}

type bucket struct {
	entries     []stringEntry
	chainOffset int64
}

// Save writes the dict at the writer's current position.  Every payload
// must already have been saved (have a non-zero offset).
func (b *Builder) Save(w *datastream.Writer) error {
	if len(b.entries) == 0 {
		w.Uint32(0)
		w.Int32List(nil)
		return w.Err()
	}

	keys := make([]string, len(b.entries))
	for i, e := range b.entries {
		if e.payload.Offset() <= 0 {
			return fmt.Errorf("key %q: %w", e.key, errUnsavedPayload)
		}
		keys[i] = e.key
	}

	sz := tableSize(len(keys))
	positions := choosePositions(keys, sz)

	table := make([]bucket, sz)
	for _, e := range b.entries {
		n := hashKey(e.key, positions) % sz
		table[n].entries = append(table[n].entries, e)
	}

	w.Uint32(sz)
	w.Int32List(positions)

	// lay out the duplicate chains (which follow the table) up front, so
	// the table can be written in a single pass
	off := w.Pos() + 4*int64(sz)
	for i := range table {
		if len(table[i].entries) < 2 {
			continue
		}
		table[i].chainOffset = off
		for _, e := range table[i].entries {
			off += 4 + 4 + int64(len(e.key))
		}
		off += 4
	}
	if off > datastream.MaxOffset {
		return fmt.Errorf("dict ends at %d, beyond the 32-bit offset space", off)
	}

	for _, bkt := range table {
		switch len(bkt.entries) {
		case 0:
			w.Int32(0)
		case 1:
			w.Int32(bkt.entries[0].payload.Offset())
		default:
			w.Int32(-int32(bkt.chainOffset))
		}
	}

	for _, bkt := range table {
		if len(bkt.entries) < 2 {
			continue
		}
		if w.Pos() != bkt.chainOffset && w.Err() == nil {
			return fmt.Errorf("invariant broken: duplicate chain at %d, expected %d", w.Pos(), bkt.chainOffset)
		}
		for _, e := range bkt.entries {
			w.Int32(e.payload.Offset())
			w.String(e.key)
		}
		w.Int32(0)
	}

	return w.Err()
}

// Reader performs lookups against a dict stored in a database.
type Reader struct {
	data        *datastream.Reader
	size        uint32
	positions   []int32
	tableOffset int64
}

// NewReader reads the dict header at off.  Implausible header values are
// reported as ErrCorrupt rather than trusted.
func NewReader(data *datastream.Reader, off int64) (*Reader, error) {
	r := data.At(off)
	size := r.Uint32()
	count := r.Uint32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading dict header at %d: %w: %w", off, ErrCorrupt, err)
	}
	if size > MaxTableSize || count > MaxHashPositions {
		return nil, fmt.Errorf("dict header at %d (size %d, %d positions): %w", off, size, count, ErrCorrupt)
	}

	r = data.At(off + 4)
	positions := r.Int32List()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading dict positions at %d: %w: %w", off, ErrCorrupt, err)
	}

	tableOffset := r.Pos()
	if tableOffset+4*int64(size) > data.Len() {
		return nil, fmt.Errorf("dict table of %d slots at %d exceeds data (len %d): %w", size, tableOffset, data.Len(), ErrCorrupt)
	}

	return &Reader{
		data:        data,
		size:        size,
		positions:   positions,
		tableOffset: tableOffset,
	}, nil
}

// Size returns the number of slots in the hash table.
func (d *Reader) Size() uint32 {
	return d.size
}

func (d *Reader) slotFor(key string) (int32, error) {
	if d.size == 0 {
		return 0, nil
	}
	n := hashKey(key, d.positions) % d.size
	r := d.data.At(d.tableOffset + 4*int64(n))
	slot := r.Int32()
	if err := r.Err(); err != nil {
		return 0, fmt.Errorf("reading slot %d: %w: %w", n, ErrCorrupt, err)
	}
	return slot, nil
}

// walkChain calls fn for every (offset, key) pair in the duplicate chain
// at off until fn returns false or the chain ends.
func (d *Reader) walkChain(off int64, fn func(offset int32, key []byte) bool) error {
	r := d.data.At(off)
	for {
		entryOff := r.Int32()
		if err := r.Err(); err != nil {
			return fmt.Errorf("reading duplicate chain at %d: %w: %w", off, ErrCorrupt, err)
		}
		if entryOff == 0 {
			return nil
		}
		key := r.StringBytes()
		if err := r.Err(); err != nil {
			return fmt.Errorf("reading duplicate chain at %d: %w: %w", off, ErrCorrupt, err)
		}
		if !fn(entryOff, key) {
			return nil
		}
	}
}

// FindString returns the offset of an entry that may be stored under key,
// or 0 if there is none.  A non-zero result is only a candidate: the
// caller must check the key of the entry at that offset.
func (d *Reader) FindString(key string) (int32, error) {
	slot, err := d.slotFor(key)
	if err != nil || slot >= 0 {
		return slot, err
	}

	var found int32
	want := unsafestring.ToBytes(key)
	err = d.walkChain(-int64(slot), func(offset int32, stored []byte) bool {
		if bytes.Equal(stored, want) {
			found = offset
			return false
		}
		return true
	})
	return found, err
}

// FindMultiString is like FindString, but returns every offset stored
// under key rather than only the first.
func (d *Reader) FindMultiString(key string) ([]int32, error) {
	slot, err := d.slotFor(key)
	if err != nil || slot == 0 {
		return nil, err
	}
	if slot > 0 {
		return []int32{slot}, nil
	}

	var found []int32
	want := unsafestring.ToBytes(key)
	err = d.walkChain(-int64(slot), func(offset int32, stored []byte) bool {
		if bytes.Equal(stored, want) {
			found = append(found, offset)
		}
		return true
	})
	return found, err
}
