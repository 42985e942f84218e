// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"path"
	"strings"

	"github.com/bpowers/sycoca/internal/datastream"
)

// RootGroup is the path of the top-level menu group.
const RootGroup = "/"

// ServiceGroup is a menu folder.  Its path ends in '/', and Children holds
// the paths of the services and groups inside it, in menu order.
type ServiceGroup struct {
	entryBase

	Caption       string
	Icon          string
	Comment       string
	NoDisplay     bool
	Children      []string
	DirectoryFile string
}

// NewServiceGroup returns an empty group.  A missing trailing '/' is
// added.
func NewServiceGroup(p string) *ServiceGroup {
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	g := &ServiceGroup{entryBase: entryBase{path: p}}
	if name := strings.TrimSuffix(p, "/"); name != "" {
		g.Caption = path.Base(name)
	}
	return g
}

func (g *ServiceGroup) Tag() TypeTag {
	return TagServiceGroup
}

func (g *ServiceGroup) IsValid() bool {
	return strings.HasSuffix(g.path, "/")
}

// AddChild appends a child path unless it's already present.
func (g *ServiceGroup) AddChild(p string) {
	for _, c := range g.Children {
		if c == p {
			return
		}
	}
	g.Children = append(g.Children, p)
}

func (g *ServiceGroup) saveFields(w *datastream.Writer) {
	w.String(g.Caption)
	w.String(g.Icon)
	w.String(g.Comment)
	w.Bool(g.NoDisplay)
	w.StringList(g.Children)
	w.String(g.DirectoryFile)
}

func (g *ServiceGroup) loadFields(r *datastream.Reader) {
	g.Caption = r.String()
	g.Icon = r.String()
	g.Comment = r.String()
	g.NoDisplay = r.Bool()
	g.Children = r.StringList()
	g.DirectoryFile = r.String()
}

// serviceGroupFromSource creates a group at groupPath from a .directory
// description.  src may be nil for directories without one.
func serviceGroupFromSource(groupPath string, src *Source) *ServiceGroup {
	g := NewServiceGroup(groupPath)
	if src == nil {
		return g
	}
	g.SetDeleted(src.hidden())
	if c := src.value("Name"); c != "" {
		g.Caption = c
	}
	g.Icon = src.value("Icon")
	g.Comment = src.value("Comment")
	g.NoDisplay = src.boolean("NoDisplay", false)
	g.DirectoryFile = src.Path
	return g
}
