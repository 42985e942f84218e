// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"github.com/bpowers/sycoca"
)

// Entries embed unexported state, so they are copied into plain structs
// before being handed to the YAML encoder.

type entryView struct {
	Path  string `yaml:"path"`
	Type  string `yaml:"type"`
	Entry any    `yaml:"entry"`
}

type serviceView struct {
	Type              string            `yaml:"type"`
	Name              string            `yaml:"name"`
	Exec              string            `yaml:"exec,omitempty"`
	Icon              string            `yaml:"icon,omitempty"`
	Comment           string            `yaml:"comment,omitempty"`
	GenericName       string            `yaml:"generic_name,omitempty"`
	Terminal          bool              `yaml:"terminal,omitempty"`
	WorkingDir        string            `yaml:"working_dir,omitempty"`
	Library           string            `yaml:"library,omitempty"`
	DesktopEntryName  string            `yaml:"desktop_entry_name"`
	MenuID            string            `yaml:"menu_id,omitempty"`
	InitialPreference int32             `yaml:"initial_preference"`
	Keywords          []string          `yaml:"keywords,omitempty"`
	Categories        []string          `yaml:"categories,omitempty"`
	ServiceTypes      []offerTypeView   `yaml:"service_types,omitempty"`
	Properties        map[string]string `yaml:"properties,omitempty"`
	AllowAsDefault    bool              `yaml:"allow_as_default"`
	NoDisplay         bool              `yaml:"no_display,omitempty"`
}

type offerTypeView struct {
	ServiceType string `yaml:"service_type"`
	Preference  int32  `yaml:"preference"`
}

type serviceTypeView struct {
	Comment      string            `yaml:"comment,omitempty"`
	ParentType   string            `yaml:"parent_type,omitempty"`
	PropertyDefs map[string]string `yaml:"property_defs,omitempty"`
	SourceFile   string            `yaml:"source_file,omitempty"`
	Patterns     []string          `yaml:"patterns,omitempty"`
}

type serviceGroupView struct {
	Caption       string   `yaml:"caption,omitempty"`
	Icon          string   `yaml:"icon,omitempty"`
	Comment       string   `yaml:"comment,omitempty"`
	NoDisplay     bool     `yaml:"no_display,omitempty"`
	DirectoryFile string   `yaml:"directory_file,omitempty"`
	Children      []string `yaml:"children,omitempty"`
}

func viewOf(e sycoca.Entry) entryView {
	v := entryView{Path: e.Path(), Type: e.Tag().String()}
	switch e := e.(type) {
	case *sycoca.Service:
		sv := serviceView{
			Type:              e.Type,
			Name:              e.Name,
			Exec:              e.Exec,
			Icon:              e.Icon,
			Comment:           e.Comment,
			GenericName:       e.GenericName,
			Terminal:          e.Terminal,
			WorkingDir:        e.WorkingDir,
			Library:           e.Library,
			DesktopEntryName:  e.DesktopEntryName,
			MenuID:            e.MenuID,
			InitialPreference: e.InitialPreference,
			Keywords:          e.Keywords,
			Categories:        e.Categories,
			Properties:        e.Properties,
			AllowAsDefault:    e.AllowAsDefault,
			NoDisplay:         e.NoDisplay,
		}
		for _, st := range e.ServiceTypes {
			sv.ServiceTypes = append(sv.ServiceTypes, offerTypeView{ServiceType: st.ServiceType, Preference: st.Preference})
		}
		v.Entry = sv
	case *sycoca.MimeType:
		v.Entry = serviceTypeView{
			Comment:      e.Comment,
			ParentType:   e.ParentType,
			PropertyDefs: e.PropertyDefs,
			SourceFile:   e.SourceFile,
			Patterns:     e.Patterns,
		}
	case *sycoca.ServiceType:
		v.Entry = serviceTypeView{
			Comment:      e.Comment,
			ParentType:   e.ParentType,
			PropertyDefs: e.PropertyDefs,
			SourceFile:   e.SourceFile,
		}
	case *sycoca.ServiceGroup:
		v.Entry = serviceGroupView{
			Caption:       e.Caption,
			Icon:          e.Icon,
			Comment:       e.Comment,
			NoDisplay:     e.NoDisplay,
			DirectoryFile: e.DirectoryFile,
			Children:      e.Children,
		}
	}
	return v
}
