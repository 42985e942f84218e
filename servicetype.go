// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"strings"

	"github.com/bpowers/sycoca/internal/datastream"
)

const propertyDefPrefix = "PropertyDef::"

// ServiceType describes a plugin interface services can implement.  It is
// stored under its name.
type ServiceType struct {
	entryBase

	Comment    string
	ParentType string
	// PropertyDefs maps property names to their declared types.
	PropertyDefs map[string]string
	SourceFile   string
}

func NewServiceType(name string) *ServiceType {
	return &ServiceType{entryBase: entryBase{path: name}}
}

// Name returns the service type's name, which is also its path.
func (t *ServiceType) Name() string {
	return t.path
}

func (t *ServiceType) Tag() TypeTag {
	return TagServiceType
}

func (t *ServiceType) IsValid() bool {
	return t.path != ""
}

func (t *ServiceType) saveFields(w *datastream.Writer) {
	w.String(t.Comment)
	w.String(t.ParentType)
	w.StringMap(t.PropertyDefs)
	w.String(t.SourceFile)
}

func (t *ServiceType) loadFields(r *datastream.Reader) {
	t.Comment = r.String()
	t.ParentType = r.String()
	t.PropertyDefs = r.StringMap()
	t.SourceFile = r.String()
}

// MimeType is a ServiceType for a content type, which additionally knows
// the file name patterns identifying it.
type MimeType struct {
	ServiceType

	Patterns []string
}

func NewMimeType(name string) *MimeType {
	return &MimeType{ServiceType: ServiceType{entryBase: entryBase{path: name}}}
}

func (m *MimeType) Tag() TypeTag {
	return TagMimeType
}

// IsValid requires a "major/minor" name.
func (m *MimeType) IsValid() bool {
	major, minor, ok := strings.Cut(m.path, "/")
	return ok && major != "" && minor != ""
}

func (m *MimeType) saveFields(w *datastream.Writer) {
	m.ServiceType.saveFields(w)
	w.StringList(m.Patterns)
}

func (m *MimeType) loadFields(r *datastream.Reader) {
	m.ServiceType.loadFields(r)
	m.Patterns = r.StringList()
}

// serviceTypeFromSource creates a ServiceType or MimeType depending on the
// description's Type, or returns nil if it is neither.
func serviceTypeFromSource(src *Source) Entry {
	switch src.value("Type") {
	case "ServiceType":
		t := NewServiceType(src.value("X-KDE-ServiceType"))
		fillServiceType(t, src)
		t.ParentType = src.value("X-KDE-Derived")
		for g, keys := range src.Groups {
			if name, ok := strings.CutPrefix(g, propertyDefPrefix); ok && name != "" {
				if t.PropertyDefs == nil {
					t.PropertyDefs = make(map[string]string)
				}
				t.PropertyDefs[name] = keys["Type"]
			}
		}
		return t
	case "MimeType":
		m := NewMimeType(src.value("MimeType"))
		fillServiceType(&m.ServiceType, src)
		m.ParentType = src.value("X-KDE-IsAlso")
		m.Patterns = src.list("Patterns", ';')
		return m
	}
	return nil
}

func fillServiceType(t *ServiceType, src *Source) {
	t.SetDeleted(src.hidden())
	t.Comment = src.value("Comment")
	t.SourceFile = src.Path
}
