// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/bpowers/sycoca/internal/datastream"
	"github.com/bpowers/sycoca/internal/dict"
)

// DuplicatePolicy decides whether candidate replaces existing when both
// are added under the same path.
type DuplicatePolicy func(existing, candidate Entry) bool

// FirstWins keeps the entry added first.  Sources are scanned from
// highest to lowest priority, so this is the default.
func FirstWins(existing, candidate Entry) bool { return false }

// LastWins replaces existing entries.
func LastWins(existing, candidate Entry) bool { return true }

// BuildFactory is the write side of a factory: it collects entries in
// memory and serializes them when the Builder saves.
type BuildFactory interface {
	ID() FactoryID
	// Entries returns the entries that will be saved.
	Entries() []Entry

	save(w *datastream.Writer) (int32, error)
	resetOffsets()
}

// FactoryOption configures a build factory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	logger *slog.Logger
	policy DuplicatePolicy
}

// WithFactoryLogger sets an optional logger for skipped and replaced
// entries.
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(opts *factoryOptions) {
		opts.logger = logger
	}
}

// WithDuplicatePolicy overrides FirstWins.
func WithDuplicatePolicy(policy DuplicatePolicy) FactoryOption {
	return func(opts *factoryOptions) {
		opts.policy = policy
	}
}

type buildFactory struct {
	id      FactoryID
	logger  *slog.Logger
	policy  DuplicatePolicy
	entries []Entry
	index   map[string]int
}

func newBuildFactory(id FactoryID, opts []FactoryOption) buildFactory {
	options := factoryOptions{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy: FirstWins,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return buildFactory{
		id:     id,
		logger: options.logger.With("factory", id.String()),
		policy: options.policy,
		index:  make(map[string]int),
	}
}

func (f *buildFactory) ID() FactoryID {
	return f.id
}

// add registers e under its path.  Deleted entries are kept so they can
// mask lower-priority entries with the same path, but they are never
// saved.
func (f *buildFactory) add(e Entry) bool {
	if e == nil {
		return false
	}
	if !e.IsDeleted() && !e.IsValid() {
		f.logger.Debug("skipping invalid entry", "path", e.Path(), "type", e.Tag())
		return false
	}
	if i, ok := f.index[e.Path()]; ok {
		existing := f.entries[i]
		if !f.policy(existing, e) {
			f.logger.Debug("skipping duplicate entry", "path", e.Path())
			return false
		}
		f.entries[i] = e
		return true
	}
	f.index[e.Path()] = len(f.entries)
	f.entries = append(f.entries, e)
	return true
}

// RemoveEntry drops the entry stored under path.
func (f *buildFactory) RemoveEntry(path string) bool {
	if _, ok := f.index[path]; !ok {
		return false
	}
	f.entries = slices.DeleteFunc(f.entries, func(e Entry) bool { return e.Path() == path })
	clear(f.index)
	for i, e := range f.entries {
		f.index[e.Path()] = i
	}
	return true
}

// EntryByPath returns the entry added under path, including a deleted
// one.
func (f *buildFactory) EntryByPath(path string) Entry {
	if i, ok := f.index[path]; ok {
		return f.entries[i]
	}
	return nil
}

func (f *buildFactory) Entries() []Entry {
	live := make([]Entry, 0, len(f.entries))
	for _, e := range f.entries {
		if !e.IsDeleted() {
			live = append(live, e)
		}
	}
	return live
}

func (f *buildFactory) resetOffsets() {
	for _, e := range f.entries {
		e.base().offset = 0
	}
}

// saveSections writes the factory header, entries, linear index and
// primary dict, then any factory-specific sections whose offsets go into
// the extra header words.  It returns the header's offset.
func (f *buildFactory) saveSections(w *datastream.Writer, extraWords int, saveExtra func(w *datastream.Writer) ([]int32, error)) (int32, error) {
	live := f.Entries()
	if len(live) > MaxFactoryEntries {
		return 0, fmt.Errorf("%s: %d entries: %w", f.id, len(live), errTooManyEntries)
	}

	hdr := w.Pos()
	start := w.Offset()
	for range 3 + extraWords {
		w.Int32(0)
	}

	begin := w.Offset()
	for _, e := range live {
		if err := saveEntry(w, e); err != nil {
			return 0, fmt.Errorf("%s: %w", f.id, err)
		}
	}
	end := w.Offset()

	w.Int32(int32(len(live)))
	for _, e := range live {
		w.Int32(e.Offset())
	}

	dictOff := w.Offset()
	d := dict.NewBuilder()
	for _, e := range live {
		d.Add(e.Path(), e)
	}
	if err := d.Save(w); err != nil {
		return 0, fmt.Errorf("%s: dict.Save: %w", f.id, err)
	}

	var extra []int32
	if saveExtra != nil {
		var err error
		if extra, err = saveExtra(w); err != nil {
			return 0, fmt.Errorf("%s: %w", f.id, err)
		}
	}
	if len(extra) != extraWords {
		return 0, fmt.Errorf("%s: %d extra header words, want %d", f.id, len(extra), extraWords)
	}

	w.PatchInt32(hdr, dictOff)
	w.PatchInt32(hdr+4, begin)
	w.PatchInt32(hdr+8, end)
	for i, v := range extra {
		w.PatchInt32(hdr+12+4*int64(i), v)
	}
	if err := w.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", f.id, err)
	}
	f.logger.Debug("saved factory", "entries", len(live), "offset", start)
	return start, nil
}

// saveDict writes a secondary dict keyed by keyOf, skipping entries with
// an empty key, and returns its offset.
func saveDict(w *datastream.Writer, entries []Entry, keyOf func(Entry) string) (int32, error) {
	off := w.Offset()
	d := dict.NewBuilder()
	for _, e := range entries {
		if k := keyOf(e); k != "" {
			d.Add(k, e)
		}
	}
	if err := d.Save(w); err != nil {
		return 0, fmt.Errorf("dict.Save: %w", err)
	}
	return off, nil
}
