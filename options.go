// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"io"
	"log/slog"
	"time"
)

const (
	defaultRebuildTimeout = 2 * time.Minute
	defaultEntryCacheSize = 512
)

// Strategy selects how the database file is brought into memory.
type Strategy int

const (
	// StrategyMmap maps the file read-only, falling back to StrategyFile
	// if mapping fails.
	StrategyMmap Strategy = iota
	// StrategyFile reads the whole file onto the heap.
	StrategyFile
)

func (s Strategy) String() string {
	switch s {
	case StrategyMmap:
		return "mmap"
	case StrategyFile:
		return "file"
	}
	return "unknown"
}

// ParseStrategy maps "mmap" and "file" to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "mmap":
		return StrategyMmap, true
	case "file":
		return StrategyFile, true
	}
	return StrategyMmap, false
}

// Option configures a Database.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	path           string
	globalPath     string
	strategy       Strategy
	strategySet    bool
	invoker        BuilderInvoker
	rebuildTimeout time.Duration
	entryCacheSize int
	dummyFallback  bool
}

func defaultOptions() options {
	return options{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		globalPath:     DefaultGlobalPath,
		strategy:       StrategyMmap,
		invoker:        DefaultInvoker(),
		rebuildTimeout: defaultRebuildTimeout,
		entryCacheSize: defaultEntryCacheSize,
	}
}

// WithLogger sets an optional logger.  If not provided, no logging output
// will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithPath sets the per-user database path.  The SYCOCA_DB environment
// variable still takes precedence.
func WithPath(path string) Option {
	return func(opts *options) {
		opts.path = path
	}
}

// WithGlobalPath sets the system-wide database consulted when no per-user
// database exists.  An empty path disables the fallback.
func WithGlobalPath(path string) Option {
	return func(opts *options) {
		opts.globalPath = path
	}
}

// WithStrategy picks the read strategy, overriding SYCOCA_STRATEGY.
func WithStrategy(s Strategy) Option {
	return func(opts *options) {
		opts.strategy = s
		opts.strategySet = true
	}
}

// WithInvoker sets what runs when the database is missing, outdated or
// corrupt.  A nil invoker disables rebuilds.
func WithInvoker(inv BuilderInvoker) Option {
	return func(opts *options) {
		opts.invoker = inv
	}
}

// WithRebuildTimeout bounds how long a rebuild may block a lookup.
func WithRebuildTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.rebuildTimeout = d
	}
}

// WithEntryCacheSize sets how many decoded entries are kept per
// generation.  Zero disables the cache.
func WithEntryCacheSize(n int) Option {
	return func(opts *options) {
		opts.entryCacheSize = n
	}
}

// WithDummyFallback serves an empty in-memory database instead of becoming
// unavailable when no database file can be found or built.
func WithDummyFallback() Option {
	return func(opts *options) {
		opts.dummyFallback = true
	}
}
