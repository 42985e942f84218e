// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"fmt"

	"github.com/bpowers/sycoca/internal/datastream"
)

// FormatVersion is written at offset 0 of every database.  Bump it
// whenever the layout of the file or of any entry changes.
const FormatVersion int32 = 1

// TypeTag identifies the concrete kind of a stored entry.
type TypeTag int32

const (
	TagService      TypeTag = 1
	TagServiceType  TypeTag = 2
	TagMimeType     TypeTag = 3
	TagServiceGroup TypeTag = 7
)

func (t TypeTag) String() string {
	switch t {
	case TagService:
		return "Service"
	case TagServiceType:
		return "ServiceType"
	case TagMimeType:
		return "MimeType"
	case TagServiceGroup:
		return "ServiceGroup"
	}
	return fmt.Sprintf("TypeTag(%d)", int32(t))
}

// FactoryID identifies a factory in the database's factory directory.
// Zero terminates the directory and is never a valid ID.
type FactoryID int32

const (
	ServiceFactoryID      FactoryID = 1
	ServiceTypeFactoryID  FactoryID = 2
	ServiceGroupFactoryID FactoryID = 3
)

func (id FactoryID) String() string {
	switch id {
	case ServiceFactoryID:
		return "services"
	case ServiceTypeFactoryID:
		return "servicetypes"
	case ServiceGroupFactoryID:
		return "servicegroups"
	}
	return fmt.Sprintf("FactoryID(%d)", int32(id))
}

// Entry is a record stored in a factory.  Entries returned by a Database
// are shared with its cache and must not be modified.
type Entry interface {
	// Tag identifies the concrete type.
	Tag() TypeTag
	// Path is the key the entry is stored, looked up and deduplicated
	// under.
	Path() string
	// Offset is the entry's position in the database, or 0 if it has
	// not been saved.
	Offset() int32
	// IsValid reports whether the entry is complete enough to be served.
	IsValid() bool
	// IsDeleted reports whether the source marked the entry hidden.
	// Deleted entries are never saved.
	IsDeleted() bool

	base() *entryBase
	saveFields(w *datastream.Writer)
	loadFields(r *datastream.Reader)
}

type entryBase struct {
	path    string
	offset  int32
	deleted bool
}

func (e *entryBase) Path() string    { return e.path }
func (e *entryBase) Offset() int32   { return e.offset }
func (e *entryBase) IsDeleted() bool { return e.deleted }
func (e *entryBase) base() *entryBase {
	return e
}

// SetDeleted marks the entry hidden, so that it masks lower-priority
// entries with the same path without being saved itself.
func (e *entryBase) SetDeleted(deleted bool) {
	e.deleted = deleted
}

var decoders = map[TypeTag]func() Entry{
	TagService:      func() Entry { return &Service{} },
	TagServiceType:  func() Entry { return &ServiceType{} },
	TagMimeType:     func() Entry { return &MimeType{} },
	TagServiceGroup: func() Entry { return &ServiceGroup{} },
}

// saveEntry appends e to w and records its offset.  Every entry starts
// with the same prefix (type tag, path) so a reader can dispatch on the
// tag before decoding anything type-specific.
func saveEntry(w *datastream.Writer, e Entry) error {
	b := e.base()
	if b.offset != 0 {
		return fmt.Errorf("%s %q: %w", e.Tag(), b.path, errAlreadySaved)
	}
	b.offset = w.Offset()
	w.Int32(int32(e.Tag()))
	w.String(b.path)
	e.saveFields(w)
	return w.Err()
}

// loadEntry decodes the entry at off.  Unknown tags, truncated fields and
// invalid entries are all reported as ErrCorrupt.
func loadEntry(data *datastream.Reader, off int32) (Entry, error) {
	r := data.At(int64(off))
	tag := TypeTag(r.Int32())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("entry at %d: %w: %w", off, ErrCorrupt, err)
	}
	newEntry, ok := decoders[tag]
	if !ok {
		return nil, fmt.Errorf("entry at %d: unknown type tag %d: %w", off, int32(tag), ErrCorrupt)
	}
	e := newEntry()
	b := e.base()
	b.offset = off
	b.path = r.String()
	e.loadFields(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%s at %d: %w: %w", tag, off, ErrCorrupt, err)
	}
	if !e.IsValid() {
		return nil, fmt.Errorf("%s %q at %d is invalid: %w", tag, b.path, off, ErrCorrupt)
	}
	return e, nil
}
