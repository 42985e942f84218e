// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"fmt"

	"github.com/bpowers/sycoca/internal/datastream"
	"github.com/bpowers/sycoca/internal/dict"
)

// MaxFactoryEntries bounds the number of entries in a single factory.  A
// larger count in a linear index is treated as corruption.
const MaxFactoryEntries = 8192

// factory is the read side shared by all typed factories: it resolves the
// factory header, the primary dict and the linear index, and turns
// offsets into validated entries.  Its state is dropped whenever the
// Database closes its file.
type factory struct {
	db         *Database
	id         FactoryID
	extraWords int
	tags       []TypeTag

	loaded bool
	ok     bool
	data   *datastream.Reader
	begin  int32
	end    int32
	extra  []int32
	dict   *dict.Reader
}

func newFactory(db *Database, id FactoryID, extraWords int, tags ...TypeTag) *factory {
	f := &factory{db: db, id: id, extraWords: extraWords, tags: tags}
	db.addFactory(f)
	return f
}

func (f *factory) reset() {
	f.loaded = false
	f.ok = false
	f.data = nil
	f.begin, f.end = 0, 0
	f.extra = nil
	f.dict = nil
}

// load reads the factory header once per open database.  It reports
// false if the database is unavailable, the factory is absent or its
// header is corrupt.
func (f *factory) load() bool {
	if f.loaded {
		return f.ok
	}
	if !f.db.ensureOpen() {
		return false
	}
	f.loaded = true

	r := f.db.findFactory(f.id)
	if r == nil {
		return false
	}
	hdrOff := r.Pos()
	dictOff := r.Int32()
	begin := r.Int32()
	end := r.Int32()
	extra := make([]int32, f.extraWords)
	for i := range extra {
		extra[i] = r.Int32()
	}
	if err := r.Err(); err != nil {
		f.db.flagError(fmt.Errorf("%s header at %d: %w: %w", f.id, hdrOff, ErrCorrupt, err))
		return false
	}
	size := r.Len()
	if begin <= 0 || begin > end || int64(end)+4 > size || dictOff < end+4 || int64(dictOff) >= size {
		f.db.flagError(fmt.Errorf("%s header at %d (dict %d, entries [%d, %d)): %w", f.id, hdrOff, dictOff, begin, end, ErrCorrupt))
		return false
	}
	d, err := dict.NewReader(r, int64(dictOff))
	if err != nil {
		f.db.flagError(fmt.Errorf("%s: %w: %w", f.id, ErrCorrupt, err))
		return false
	}

	f.data = r
	f.begin, f.end = begin, end
	f.extra = extra
	f.dict = d
	f.ok = true
	return true
}

// extraDict opens a secondary dict whose offset is stored in extra
// header word i.
func (f *factory) extraDict(i int) *dict.Reader {
	off := f.extra[i]
	if off == 0 {
		return nil
	}
	if int64(off) < int64(f.end) || int64(off) >= f.data.Len() {
		f.db.flagError(fmt.Errorf("%s: secondary dict offset %d: %w", f.id, off, ErrCorrupt))
		return nil
	}
	d, err := dict.NewReader(f.data, int64(off))
	if err != nil {
		f.db.flagError(fmt.Errorf("%s: %w: %w", f.id, ErrCorrupt, err))
		return nil
	}
	return d
}

func (f *factory) accepts(tag TypeTag) bool {
	for _, t := range f.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// createEntry decodes the entry at off.  Offsets outside the factory's
// entry region and entries of a foreign type are corruption: nothing a
// dict or index of this factory stores may point there.
func (f *factory) createEntry(off int32) Entry {
	if off < f.begin || off >= f.end {
		f.db.flagError(fmt.Errorf("%s: entry offset %d outside [%d, %d): %w", f.id, off, f.begin, f.end, ErrCorrupt))
		return nil
	}
	e, err := f.db.entry(off)
	if err != nil {
		f.db.flagError(err)
		return nil
	}
	if !f.accepts(e.Tag()) {
		f.db.flagError(fmt.Errorf("%s: %s at %d doesn't belong here: %w", f.id, e.Tag(), off, ErrCorrupt))
		return nil
	}
	return e
}

func entryPath(e Entry) string {
	return e.Path()
}

// lookup returns the entry stored in d under key.  A dict hit is only a
// candidate, so the decoded entry's key is compared against the query;
// a mismatch is an ordinary miss.
func (f *factory) lookup(d *dict.Reader, key string, keyOf func(Entry) string) Entry {
	if d == nil {
		return nil
	}
	off, err := d.FindString(key)
	if err != nil {
		f.db.flagError(fmt.Errorf("%s: %w", f.id, err))
		return nil
	}
	if off == 0 {
		return nil
	}
	e := f.createEntry(off)
	if e == nil || keyOf(e) != key {
		return nil
	}
	return e
}

// lookupAll is like lookup but returns every entry stored under key.
func (f *factory) lookupAll(d *dict.Reader, key string, keyOf func(Entry) string) []Entry {
	if d == nil {
		return nil
	}
	offs, err := d.FindMultiString(key)
	if err != nil {
		f.db.flagError(fmt.Errorf("%s: %w", f.id, err))
		return nil
	}
	var entries []Entry
	for _, off := range offs {
		if e := f.createEntry(off); e != nil && keyOf(e) == key {
			entries = append(entries, e)
		}
	}
	return entries
}

// findEntry looks up key in the primary dict.
func (f *factory) findEntry(key string) Entry {
	if !f.load() {
		return nil
	}
	return f.lookup(f.dict, key, entryPath)
}

// allEntries walks the linear index.  Entries that fail to decode are
// skipped, so a partially corrupt factory still yields what it can.
func (f *factory) allEntries() []Entry {
	if !f.load() {
		return nil
	}
	r := f.data.At(int64(f.end))
	n := r.Int32()
	if err := r.Err(); err != nil {
		f.db.flagError(fmt.Errorf("%s: linear index at %d: %w: %w", f.id, f.end, ErrCorrupt, err))
		return nil
	}
	if n < 0 || n > MaxFactoryEntries {
		f.db.flagError(fmt.Errorf("%s: linear index claims %d entries: %w", f.id, n, ErrCorrupt))
		return nil
	}
	offs := make([]int32, 0, n)
	for range n {
		offs = append(offs, r.Int32())
	}
	if err := r.Err(); err != nil {
		f.db.flagError(fmt.Errorf("%s: linear index at %d: %w: %w", f.id, f.end, ErrCorrupt, err))
		return nil
	}
	entries := make([]Entry, 0, n)
	for _, off := range offs {
		if e := f.createEntry(off); e != nil {
			entries = append(entries, e)
		}
	}
	return entries
}

// withDB runs fn as one public operation: with the database locked and
// open.  An unavailable database yields the zero T.
func withDB[T any](db *Database, fn func() T) T {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.prepare() {
		var zero T
		return zero
	}
	return fn()
}

// entriesAs filters entries down to one concrete type.
func entriesAs[T Entry](entries []Entry) []T {
	var out []T
	for _, e := range entries {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// entryAs converts a possibly-nil Entry, returning the zero T on a nil or
// foreign entry.
func entryAs[T Entry](e Entry) T {
	t, _ := e.(T)
	return t
}
