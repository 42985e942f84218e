// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bpowers/sycoca/internal/datastream"
	"github.com/bpowers/sycoca/internal/mmap"
)

// maxFactories bounds the factory directory.
const maxFactories = 64

// State is where a Database is in its open protocol.
type State int

const (
	// StateNotOpen is the initial state, and the state after
	// NotifyChanged: the next access opens the file.
	StateNotOpen State = iota
	// StateOK means a database is open and being served.
	StateOK
	// StateNoDatabaseFound means no file exists at any candidate path.
	StateNoDatabaseFound
	// StateBadVersion means a file exists but has the wrong version or
	// an unreadable directory.
	StateBadVersion
	// StateUnavailable means opening failed even after a rebuild
	// attempt.  Every lookup returns empty results until NotifyChanged.
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateNotOpen:
		return "not open"
	case StateOK:
		return "ok"
	case StateNoDatabaseFound:
		return "no database found"
	case StateBadVersion:
		return "bad version"
	case StateUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Metadata is the database-wide information stored in the trailer.
type Metadata struct {
	Prefixes        []string
	Timestamp       time.Time
	Language        string
	UpdateSignature uint32
	ResourceDirs    []string
}

// Database is a handle to a sycoca file.  It opens lazily on first use,
// runs at most one rebuild per generation when the file is missing,
// outdated or corrupt, and reopens after NotifyChanged.  A Database is
// safe for concurrent use.
type Database struct {
	opts   options
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	err        error
	closed     bool
	file       *mmap.File
	data       *datastream.Reader
	path       string
	dummy      bool
	directory  map[FactoryID]int32
	trailerOff int64
	meta       *Metadata
	generation uint64
	factories  []*factory
	entries    *lru.Cache[int32, Entry]
	changed    []string

	// rebuildNeeded is raised by the first corruption seen in a
	// generation; triedRebuild makes sure we only act on it once.
	rebuildNeeded bool
	triedRebuild  bool
}

// New returns a Database that opens its file on first use.
func New(opts ...Option) *Database {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	db := &Database{
		opts:   options,
		logger: options.logger,
	}
	if options.entryCacheSize > 0 {
		// only fails for a non-positive size
		db.entries, _ = lru.New[int32, Entry](options.entryCacheSize)
	}
	return db
}

// Open returns a Database whose file has already been opened, rebuilding
// it if necessary.
func Open(opts ...Option) (*Database, error) {
	db := New(opts...)
	if err := db.Ready(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Ready opens the database if needed and reports why it can't be served.
func (db *Database) Ready() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.prepare() {
		return nil
	}
	if db.closed {
		return ErrClosed
	}
	return db.err
}

func (db *Database) State() State {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state
}

// Path returns the file currently being served, or "" if none is open or
// the database is the empty in-memory fallback.
func (db *Database) Path() string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.path
}

// IsDummy reports whether the empty in-memory fallback is being served.
func (db *Database) IsDummy() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.dummy
}

// Generation counts successful opens.  It changes whenever the file
// being served may have changed.
func (db *Database) Generation() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.generation
}

// Corrupted reports whether corruption was detected in the current
// generation.
func (db *Database) Corrupted() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.rebuildNeeded
}

// NotifyChanged tells the Database a new file has been written.  The
// current file is closed, all factory state is dropped, and the next
// access reopens.  changed lists the resources that were modified.
func (db *Database) NotifyChanged(changed ...string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return
	}
	db.logger.Debug("database changed", "resources", changed)
	db.closeData()
	db.changed = slices.Clone(changed)
	db.err = nil
	db.rebuildNeeded = false
	db.triedRebuild = false
}

// IsChanged reports whether resource was named by the last NotifyChanged.
func (db *Database) IsChanged(resource string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Contains(db.changed, resource)
}

// Close releases the file.  Lookups on a closed Database return empty
// results.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.closeData()
}

// Metadata returns the trailer of the open database, or the zero
// Metadata if it's unavailable.
func (db *Database) Metadata() Metadata {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.prepare() {
		return Metadata{}
	}
	if db.meta == nil {
		db.meta = db.readMetadata()
	}
	return *db.meta
}

func (db *Database) Timestamp() time.Time { return db.Metadata().Timestamp }
func (db *Database) Language() string { return db.Metadata().Language }
func (db *Database) UpdateSignature() uint32 { return db.Metadata().UpdateSignature }
func (db *Database) ResourceDirs() []string { return db.Metadata().ResourceDirs }
func (db *Database) Prefixes() []string { return db.Metadata().Prefixes }

func (db *Database) readMetadata() *Metadata {
	r := db.data.At(db.trailerOff)
	var m Metadata
	if prefixes := r.String(); prefixes != "" {
		m.Prefixes = strings.Split(prefixes, ":")
	}
	if ts := r.Uint32(); ts != 0 {
		m.Timestamp = time.Unix(int64(ts), 0)
	}
	m.Language = r.String()
	m.UpdateSignature = r.Uint32()
	m.ResourceDirs = r.StringList()
	if err := r.Err(); err != nil {
		db.flagError(fmt.Errorf("trailer at %d: %w: %w", db.trailerOff, ErrCorrupt, err))
		return &Metadata{}
	}
	return &m
}

func (db *Database) addFactory(f *factory) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.factories = append(db.factories, f)
}

// prepare is called with mu held at the start of every public operation.
// A rebuild requested by corruption in an earlier operation happens here,
// never in the middle of one, so no decoder is left reading a closed
// file.
func (db *Database) prepare() bool {
	if db.closed {
		return false
	}
	if db.state == StateOK && db.rebuildNeeded && !db.triedRebuild && !db.dummy && db.opts.invoker != nil {
		db.logger.Info("rebuilding corrupt database", "path", db.path)
		_ = db.closeData()
		db.rebuild()
	}
	return db.ensureOpen()
}

// ensureOpen drives the open protocol from StateNotOpen.  It never
// closes an open file, so it is safe to call mid-operation.
func (db *Database) ensureOpen() bool {
	switch db.state {
	case StateOK:
		return true
	case StateUnavailable:
		return false
	}
	if db.closed {
		return false
	}

	err := db.openData()
	if err == nil {
		return true
	}
	db.setFailState(err)

	if db.opts.invoker != nil && !db.triedRebuild {
		db.rebuild()
		if err = db.openData(); err == nil {
			return true
		}
		db.setFailState(err)
	}

	if db.state == StateNoDatabaseFound && db.opts.dummyFallback {
		derr := db.openDummy()
		if derr == nil {
			db.logger.Info("no database found, serving an empty one")
			return true
		}
		err = errors.Join(err, derr)
	}

	db.logger.Warn("database unavailable", "err", err)
	db.err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	db.state = StateUnavailable
	return false
}

func (db *Database) setFailState(err error) {
	db.err = err
	if errors.Is(err, ErrNoDatabase) {
		db.state = StateNoDatabaseFound
	} else {
		db.state = StateBadVersion
	}
	db.logger.Debug("opening database failed", "state", db.state, "err", err)
}

func (db *Database) rebuild() {
	db.triedRebuild = true
	ctx, cancel := context.WithTimeout(context.Background(), db.opts.rebuildTimeout)
	defer cancel()
	start := time.Now()
	if err := db.opts.invoker.Rebuild(ctx); err != nil {
		db.logger.Warn("database rebuild failed", "err", err)
		return
	}
	db.logger.Info("database rebuilt", "duration", time.Since(start))
}

func (db *Database) openData() error {
	paths := db.opts.candidatePaths()
	for _, p := range paths {
		f, err := db.openFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if err := db.attach(f, p); err != nil {
			_ = f.Close()
			return err
		}
		return nil
	}
	return fmt.Errorf("%w (tried %s)", ErrNoDatabase, strings.Join(paths, ", "))
}

func (db *Database) openFile(path string) (*mmap.File, error) {
	if db.opts.readStrategy() == StrategyFile {
		return mmap.ReadFile(path)
	}
	f, err := mmap.Open(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return f, err
	}
	db.logger.Debug("mmap failed, reading file instead", "path", path, "err", err)
	return mmap.ReadFile(path)
}

// attach validates the version and factory directory of f and starts
// serving it.
func (db *Database) attach(f *mmap.File, path string) error {
	data := datastream.NewReader(f.Data())
	version := data.Int32()
	if err := data.Err(); err != nil {
		return fmt.Errorf("%s: reading version: %w: %w", path, ErrVersionMismatch, err)
	}
	if version != FormatVersion {
		return fmt.Errorf("%s has version %d, want %d: %w", path, version, FormatVersion, ErrVersionMismatch)
	}

	directory := make(map[FactoryID]int32)
	for i := 0; ; i++ {
		if i > maxFactories {
			return fmt.Errorf("%s: unterminated factory directory: %w", path, ErrCorrupt)
		}
		id := FactoryID(data.Int32())
		if id == 0 {
			break
		}
		off := data.Int32()
		if off <= 0 || int64(off) >= data.Len() {
			return fmt.Errorf("%s: %s at offset %d: %w", path, id, off, ErrCorrupt)
		}
		directory[id] = off
	}
	if err := data.Err(); err != nil {
		return fmt.Errorf("%s: reading factory directory: %w: %w", path, ErrCorrupt, err)
	}

	db.file = f
	db.data = data
	db.path = path
	db.directory = directory
	db.trailerOff = data.Pos()
	db.meta = nil
	db.state = StateOK
	db.err = nil
	db.dummy = false
	db.rebuildNeeded = false
	db.generation++
	db.logger.Debug("opened database", "path", path, "mapped", f.Mapped(), "generation", db.generation)
	return nil
}

func (db *Database) openDummy() error {
	var buf datastream.Buffer
	if err := NewBuilder().Save(&buf); err != nil {
		return fmt.Errorf("building empty database: %w", err)
	}
	if err := db.attach(mmap.FromBytes(buf.Bytes()), ""); err != nil {
		return err
	}
	db.dummy = true
	return nil
}

// closeData drops the open file and everything decoded from it.
func (db *Database) closeData() error {
	for _, f := range db.factories {
		f.reset()
	}
	if db.entries != nil {
		db.entries.Purge()
	}
	var err error
	if db.file != nil {
		err = db.file.Close()
	}
	db.file = nil
	db.data = nil
	db.path = ""
	db.directory = nil
	db.meta = nil
	db.dummy = false
	db.state = StateNotOpen
	return err
}

// findFactory returns a reader positioned at the header of factory id,
// or nil if the database has no such factory.
func (db *Database) findFactory(id FactoryID) *datastream.Reader {
	off, ok := db.directory[id]
	if !ok {
		return nil
	}
	return db.data.At(int64(off))
}

// entry decodes the entry at off, consulting the per-generation cache.
func (db *Database) entry(off int32) (Entry, error) {
	if db.entries != nil {
		if e, ok := db.entries.Get(off); ok {
			return e, nil
		}
	}
	e, err := loadEntry(db.data, off)
	if err != nil {
		return nil, err
	}
	if db.entries != nil {
		db.entries.Add(off, e)
	}
	return e, nil
}

// flagError records corruption.  The first report in a generation is
// logged and schedules a rebuild for the start of the next operation.
func (db *Database) flagError(err error) {
	if !db.rebuildNeeded {
		db.logger.Warn("database corruption detected", "path", db.path, "err", err)
	} else {
		db.logger.Debug("database corruption detected", "path", db.path, "err", err)
	}
	db.rebuildNeeded = true
}
