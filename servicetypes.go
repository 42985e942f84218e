// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"cmp"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/bpowers/sycoca/internal/datastream"
)

// maxInheritanceDepth bounds ParentType chains, which may loop in a
// corrupt or badly authored database.
const maxInheritanceDepth = 16

// ServiceTypeFactory reads service types and mime types.  Its one extra
// header word is the offset of the file name pattern list.
type ServiceTypeFactory struct {
	f *factory
}

func NewServiceTypeFactory(db *Database) *ServiceTypeFactory {
	return &ServiceTypeFactory{
		f: newFactory(db, ServiceTypeFactoryID, 1, TagServiceType, TagMimeType),
	}
}

// Find returns the ServiceType or MimeType named name.
func (t *ServiceTypeFactory) Find(name string) Entry {
	return withDB(t.f.db, func() Entry {
		return t.f.findEntry(name)
	})
}

// ServiceType returns the service type named name.  Mime types are only
// returned by MimeType.
func (t *ServiceTypeFactory) ServiceType(name string) *ServiceType {
	return withDB(t.f.db, func() *ServiceType {
		return entryAs[*ServiceType](t.f.findEntry(name))
	})
}

func (t *ServiceTypeFactory) MimeType(name string) *MimeType {
	return withDB(t.f.db, func() *MimeType {
		return entryAs[*MimeType](t.f.findEntry(name))
	})
}

func (t *ServiceTypeFactory) AllServiceTypes() []*ServiceType {
	return withDB(t.f.db, func() []*ServiceType {
		return entriesAs[*ServiceType](t.f.allEntries())
	})
}

func (t *ServiceTypeFactory) AllMimeTypes() []*MimeType {
	return withDB(t.f.db, func() []*MimeType {
		return entriesAs[*MimeType](t.f.allEntries())
	})
}

// Ancestors returns the ParentType chain of name, nearest first,
// starting with name itself.
func (t *ServiceTypeFactory) Ancestors(name string) []Entry {
	return withDB(t.f.db, func() []Entry {
		return t.ancestors(name)
	})
}

func (t *ServiceTypeFactory) ancestors(name string) []Entry {
	var chain []Entry
	seen := make(map[string]bool)
	for name != "" && !seen[name] && len(chain) < maxInheritanceDepth {
		seen[name] = true
		e := t.f.findEntry(name)
		if e == nil {
			break
		}
		chain = append(chain, e)
		name = parentType(e)
	}
	return chain
}

func parentType(e Entry) string {
	switch e := e.(type) {
	case *ServiceType:
		return e.ParentType
	case *MimeType:
		return e.ParentType
	}
	return ""
}

type patternMatch struct {
	pattern string
	mime    *MimeType
}

// MimeTypesForFileName returns the mime types with a pattern matching
// the base name of fileName, most specific (longest) pattern first.
// Matching falls back to a case-insensitive comparison.
func (t *ServiceTypeFactory) MimeTypesForFileName(fileName string) []*MimeType {
	return withDB(t.f.db, func() []*MimeType {
		return t.mimeTypesForFileName(path.Base(fileName))
	})
}

func (t *ServiceTypeFactory) mimeTypesForFileName(name string) []*MimeType {
	if !t.f.load() {
		return nil
	}
	off := t.f.extra[0]
	if off == 0 {
		return nil
	}
	if off < t.f.end || int64(off) >= t.f.data.Len() {
		t.f.db.flagError(fmt.Errorf("%s: pattern list offset %d: %w", t.f.id, off, ErrCorrupt))
		return nil
	}
	r := t.f.data.At(int64(off))
	n := r.Int32()
	if n < 0 || int64(n)*8 > r.Len()-r.Pos() {
		t.f.db.flagError(fmt.Errorf("%s: pattern list of %d: %w", t.f.id, n, ErrCorrupt))
		return nil
	}

	lower := strings.ToLower(name)
	var matches []patternMatch
	for range n {
		pattern := r.String()
		mimeOff := r.Int32()
		if err := r.Err(); err != nil {
			t.f.db.flagError(fmt.Errorf("%s: pattern list: %w: %w", t.f.id, ErrCorrupt, err))
			return nil
		}
		if !matchPattern(pattern, name, lower) {
			continue
		}
		if m := entryAs[*MimeType](t.f.createEntry(mimeOff)); m != nil {
			matches = append(matches, patternMatch{pattern: pattern, mime: m})
		}
	}

	slices.SortStableFunc(matches, func(a, b patternMatch) int {
		return cmp.Compare(len(b.pattern), len(a.pattern))
	})
	var out []*MimeType
	seen := make(map[int32]bool)
	for _, m := range matches {
		if !seen[m.mime.Offset()] {
			seen[m.mime.Offset()] = true
			out = append(out, m.mime)
		}
	}
	return out
}

func matchPattern(pattern, name, lower string) bool {
	if ok, _ := path.Match(pattern, name); ok {
		return true
	}
	ok, _ := path.Match(strings.ToLower(pattern), lower)
	return ok
}

// ServiceTypeBuildFactory collects service types and mime types.
type ServiceTypeBuildFactory struct {
	buildFactory
}

func NewServiceTypeBuildFactory(opts ...FactoryOption) *ServiceTypeBuildFactory {
	return &ServiceTypeBuildFactory{buildFactory: newBuildFactory(ServiceTypeFactoryID, opts)}
}

// CreateEntry returns a ServiceType or MimeType for src, or nil if src
// describes neither or is invalid.
func (f *ServiceTypeBuildFactory) CreateEntry(src *Source) Entry {
	e := serviceTypeFromSource(src)
	if e == nil {
		f.logger.Debug("not a service type", "path", src.Path, "type", src.value("Type"))
		return nil
	}
	if !e.IsDeleted() && !e.IsValid() {
		f.logger.Warn("invalid service type", "path", src.Path, "name", e.Path())
		return nil
	}
	return e
}

// AddEntry adds a ServiceType or MimeType.
func (f *ServiceTypeBuildFactory) AddEntry(e Entry) bool {
	if e == nil || (e.Tag() != TagServiceType && e.Tag() != TagMimeType) {
		return false
	}
	return f.add(e)
}

// lookup returns the live type named name.
func (f *ServiceTypeBuildFactory) lookup(name string) Entry {
	e := f.EntryByPath(name)
	if e == nil || e.IsDeleted() {
		return nil
	}
	return e
}

func (f *ServiceTypeBuildFactory) save(w *datastream.Writer) (int32, error) {
	return f.saveSections(w, 1, func(w *datastream.Writer) ([]int32, error) {
		var matches []patternMatch
		for _, m := range entriesAs[*MimeType](f.Entries()) {
			for _, p := range m.Patterns {
				matches = append(matches, patternMatch{pattern: p, mime: m})
			}
		}
		slices.SortStableFunc(matches, func(a, b patternMatch) int {
			return cmp.Compare(a.pattern, b.pattern)
		})

		off := w.Offset()
		w.Int32(int32(len(matches)))
		for _, m := range matches {
			w.String(m.pattern)
			w.Int32(m.mime.Offset())
		}
		return []int32{off}, w.Err()
	})
}
