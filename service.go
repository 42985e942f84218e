// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"path"
	"strings"

	"github.com/bpowers/sycoca/internal/datastream"
)

// Values of Service.Type.
const (
	TypeApplication = "Application"
	TypeService     = "Service"
)

// ServiceTypeAndPreference records that a service implements a service
// type (or handles a mime type) with the given preference.
type ServiceTypeAndPreference struct {
	Preference  int32
	ServiceType string
}

// Service describes an installed application or plugin.
type Service struct {
	entryBase

	Type              string
	Name              string
	Exec              string
	Icon              string
	Comment           string
	GenericName       string
	Terminal          bool
	WorkingDir        string
	Library           string
	DesktopEntryName  string
	InitialPreference int32
	Keywords          []string
	Categories        []string
	MenuID            string
	ServiceTypes      []ServiceTypeAndPreference
	Properties        map[string]string
	AllowAsDefault    bool
	NoDisplay         bool
}

// NewService returns an Application with default preferences, stored
// under path.
func NewService(path string) *Service {
	return &Service{
		entryBase:         entryBase{path: path},
		Type:              TypeApplication,
		DesktopEntryName:  desktopEntryName(path),
		InitialPreference: 1,
		AllowAsDefault:    true,
	}
}

func (s *Service) Tag() TypeTag {
	return TagService
}

func (s *Service) IsValid() bool {
	if s.path == "" || s.Name == "" {
		return false
	}
	switch s.Type {
	case TypeApplication:
		return s.Exec != ""
	case TypeService:
		return true
	}
	return false
}

// HasServiceType reports whether the service implements name.
func (s *Service) HasServiceType(name string) bool {
	for _, st := range s.ServiceTypes {
		if st.ServiceType == name {
			return true
		}
	}
	return false
}

// AddServiceType appends name at the service's initial preference unless
// it's already present.
func (s *Service) AddServiceType(name string) {
	if name == "" || s.HasServiceType(name) {
		return
	}
	s.ServiceTypes = append(s.ServiceTypes, ServiceTypeAndPreference{
		Preference:  s.InitialPreference,
		ServiceType: name,
	})
}

func (s *Service) saveFields(w *datastream.Writer) {
	w.String(s.Type)
	w.String(s.Name)
	w.String(s.Exec)
	w.String(s.Icon)
	w.String(s.Comment)
	w.String(s.GenericName)
	w.Bool(s.Terminal)
	w.String(s.WorkingDir)
	w.String(s.Library)
	w.String(s.DesktopEntryName)
	w.Int32(s.InitialPreference)
	w.StringList(s.Keywords)
	w.StringList(s.Categories)
	w.String(s.MenuID)

	prefs := make([]int32, len(s.ServiceTypes))
	names := make([]string, len(s.ServiceTypes))
	for i, st := range s.ServiceTypes {
		prefs[i] = st.Preference
		names[i] = st.ServiceType
	}
	w.Int32List(prefs)
	w.StringList(names)

	w.StringMap(s.Properties)
	w.Bool(s.AllowAsDefault)
	w.Bool(s.NoDisplay)
}

func (s *Service) loadFields(r *datastream.Reader) {
	s.Type = r.String()
	s.Name = r.String()
	s.Exec = r.String()
	s.Icon = r.String()
	s.Comment = r.String()
	s.GenericName = r.String()
	s.Terminal = r.Bool()
	s.WorkingDir = r.String()
	s.Library = r.String()
	s.DesktopEntryName = r.String()
	s.InitialPreference = r.Int32()
	s.Keywords = r.StringList()
	s.Categories = r.StringList()
	s.MenuID = r.String()

	prefs := r.Int32List()
	names := r.StringList()
	n := min(len(prefs), len(names))
	if n > 0 {
		s.ServiceTypes = make([]ServiceTypeAndPreference, n)
		for i := range n {
			s.ServiceTypes[i] = ServiceTypeAndPreference{Preference: prefs[i], ServiceType: names[i]}
		}
	}

	s.Properties = r.StringMap()
	s.AllowAsDefault = r.Bool()
	s.NoDisplay = r.Bool()
}

// keys consumed into Service fields rather than Properties.
var serviceKeys = map[string]bool{
	"Type": true, "Name": true, "Exec": true, "Icon": true, "Comment": true,
	"GenericName": true, "Terminal": true, "Path": true, "X-KDE-Library": true,
	"InitialPreference": true, "Keywords": true, "X-KDE-Keywords": true,
	"Categories": true, "X-KDE-ServiceTypes": true, "ServiceTypes": true,
	"MimeType": true, "AllowDefault": true, "NoDisplay": true, "Hidden": true,
	"Version": true, "Encoding": true,
}

// serviceFromSource creates a Service from a desktop file.  It returns
// the service even when invalid so callers can report why.
func serviceFromSource(src *Source) *Service {
	s := NewService(src.Path)
	s.SetDeleted(src.hidden())
	if t := src.value("Type"); t != "" {
		s.Type = t
	}
	s.Name = src.value("Name")
	s.Exec = src.value("Exec")
	s.Icon = src.value("Icon")
	s.Comment = src.value("Comment")
	s.GenericName = src.value("GenericName")
	s.Terminal = src.boolean("Terminal", false)
	s.WorkingDir = src.value("Path")
	s.Library = src.value("X-KDE-Library")
	s.InitialPreference = src.int32("InitialPreference", 1)
	s.Keywords = append(src.list("Keywords", ';'), src.list("X-KDE-Keywords", ',')...)
	s.Categories = src.list("Categories", ';')
	s.AllowAsDefault = src.boolean("AllowDefault", true)
	s.NoDisplay = src.boolean("NoDisplay", false)
	if s.Type == TypeApplication {
		s.MenuID = strings.ReplaceAll(src.Path, "/", "-")
		s.AddServiceType(TypeApplication)
	}
	for _, st := range src.list("X-KDE-ServiceTypes", ',') {
		s.AddServiceType(st)
	}
	for _, st := range src.list("ServiceTypes", ',') {
		s.AddServiceType(st)
	}
	for _, mt := range src.list("MimeType", ';') {
		s.AddServiceType(mt)
	}
	for k, v := range src.Fields {
		if serviceKeys[k] || strings.IndexByte(k, '[') >= 0 {
			continue
		}
		if s.Properties == nil {
			s.Properties = make(map[string]string)
		}
		s.Properties[k] = v
	}
	return s
}

// desktopEntryName is the lowercased file name up to its first '.'.
func desktopEntryName(p string) string {
	name := path.Base(p)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
