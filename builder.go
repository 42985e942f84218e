// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/bpowers/sycoca/internal/datastream"
)

// FileWriter is usually an *os.File, but specified as an interface for
// easier testing.  Save backpatches offsets through WriteAt.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// BuilderOption configures the Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	logger *slog.Logger
}

// WithBuilderLogger sets an optional logger for the builder to use for progress updates.
// If not provided, no logging output will be produced.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(opts *builderOptions) {
		opts.logger = logger
	}
}

// Builder serializes a set of build factories into a database.
type Builder struct {
	factories []BuildFactory
	meta      Metadata
	logger    *slog.Logger
}

func NewBuilder(opts ...BuilderOption) *Builder {
	var options builderOptions
	options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{logger: options.logger}
}

// AddFactory appends f.  Factories are saved in the order added, so a
// ServiceTypeBuildFactory must come before the ServiceBuildFactory that
// refers to it.
func (b *Builder) AddFactory(f BuildFactory) {
	b.factories = append(b.factories, f)
}

// SetMetadata sets what is written to the trailer.
func (b *Builder) SetMetadata(m Metadata) {
	b.meta = m
}

// Save writes the database to f.  The factory directory is written with
// placeholder offsets and patched once every factory has been saved.
// Saving the same factories again produces an identical file.
func (b *Builder) Save(f FileWriter) error {
	seen := make(map[FactoryID]bool)
	for _, fac := range b.factories {
		id := fac.ID()
		if id == 0 || seen[id] {
			return fmt.Errorf("factory id %d: duplicate or zero", id)
		}
		seen[id] = true
		fac.resetOffsets()
	}

	w := datastream.NewWriter(f)
	w.Int32(FormatVersion)

	dirPos := w.Pos()
	for _, fac := range b.factories {
		w.Int32(int32(fac.ID()))
		w.Int32(0)
	}
	w.Int32(0)

	w.String(strings.Join(b.meta.Prefixes, ":"))
	var ts uint32
	if !b.meta.Timestamp.IsZero() {
		ts = uint32(b.meta.Timestamp.Unix())
	}
	w.Uint32(ts)
	w.String(b.meta.Language)
	w.Uint32(b.meta.UpdateSignature)
	w.StringList(b.meta.ResourceDirs)
	if err := w.Err(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, fac := range b.factories {
		start := time.Now()
		off, err := fac.save(w)
		if err != nil {
			return fmt.Errorf("saving %s: %w", fac.ID(), err)
		}
		w.PatchInt32(dirPos+8*int64(i)+4, off)
		b.logger.Info("saved factory", "factory", fac.ID().String(), "entries", len(fac.Entries()), "duration", time.Since(start))
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("w.Flush: %w", err)
	}
	return nil
}

// WriteFile saves the database and atomically replaces path with it, so
// readers holding the old file open are unaffected.  The result is
// read-only.
func (b *Builder) WriteFile(path string) error {
	var buf datastream.Buffer
	if err := b.Save(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("atomic.WriteFile: %w", err)
	}
	// make the file read-only
	if err := os.Chmod(path, 0444); err != nil {
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	b.logger.Info("wrote database", "path", path, "size", buf.Len())
	return nil
}
