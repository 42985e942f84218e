// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"path"
	"strings"

	"github.com/bpowers/sycoca/internal/datastream"
)

// ServiceGroupFactory reads the menu tree.
type ServiceGroupFactory struct {
	f        *factory
	services *ServiceFactory
}

// NewServiceGroupFactory returns a ServiceGroupFactory.  services
// resolves non-group children and may be nil.
func NewServiceGroupFactory(db *Database, services *ServiceFactory) *ServiceGroupFactory {
	return &ServiceGroupFactory{
		f:        newFactory(db, ServiceGroupFactoryID, 0, TagServiceGroup),
		services: services,
	}
}

// Root returns the top-level group.
func (g *ServiceGroupFactory) Root() *ServiceGroup {
	return g.Group(RootGroup)
}

// Group returns the group at p.  A missing trailing '/' is added.
func (g *ServiceGroupFactory) Group(p string) *ServiceGroup {
	return withDB(g.f.db, func() *ServiceGroup {
		return g.group(p)
	})
}

func (g *ServiceGroupFactory) group(p string) *ServiceGroup {
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return entryAs[*ServiceGroup](g.f.findEntry(p))
}

func (g *ServiceGroupFactory) AllGroups() []*ServiceGroup {
	return withDB(g.f.db, func() []*ServiceGroup {
		return entriesAs[*ServiceGroup](g.f.allEntries())
	})
}

// Children resolves the children of grp in menu order.  Children that
// can't be found are skipped.
func (g *ServiceGroupFactory) Children(grp *ServiceGroup) []Entry {
	if grp == nil {
		return nil
	}
	return withDB(g.f.db, func() []Entry {
		var children []Entry
		for _, c := range grp.Children {
			var e Entry
			if strings.HasSuffix(c, "/") {
				if sg := g.group(c); sg != nil {
					e = sg
				}
			} else if g.services != nil {
				if s := g.services.serviceByPath(c); s != nil {
					e = s
				}
			}
			if e != nil {
				children = append(children, e)
			}
		}
		return children
	})
}

// ServiceGroupBuildFactory collects the menu tree.  Groups are created
// implicitly, with their ancestors, as children are added.
type ServiceGroupBuildFactory struct {
	buildFactory
}

func NewServiceGroupBuildFactory(opts ...FactoryOption) *ServiceGroupBuildFactory {
	return &ServiceGroupBuildFactory{buildFactory: newBuildFactory(ServiceGroupFactoryID, opts)}
}

// CreateEntry returns a group at groupPath described by src, a parsed
// .directory file.  src may be nil.
func (f *ServiceGroupBuildFactory) CreateEntry(groupPath string, src *Source) Entry {
	return serviceGroupFromSource(groupPath, src)
}

// AddEntry adds a group and links it into its parent.  A group that was
// only created implicitly takes on the description of the first
// explicit group added at its path, keeping its children.
func (f *ServiceGroupBuildFactory) AddEntry(e Entry) bool {
	g, ok := e.(*ServiceGroup)
	if !ok || g == nil {
		return false
	}
	if existing, ok := f.EntryByPath(g.Path()).(*ServiceGroup); ok && existing.DirectoryFile == "" && !existing.IsDeleted() && g.DirectoryFile != "" {
		for _, c := range existing.Children {
			g.AddChild(c)
		}
		f.replace(g)
		return true
	}
	if !f.add(g) {
		return false
	}
	f.link(g.Path())
	return true
}

func (f *ServiceGroupBuildFactory) replace(g *ServiceGroup) {
	f.entries[f.index[g.Path()]] = g
}

// Group returns the group at p, creating it and its ancestors if needed.
func (f *ServiceGroupBuildFactory) Group(p string) *ServiceGroup {
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	if g, ok := f.EntryByPath(p).(*ServiceGroup); ok {
		return g
	}
	g := NewServiceGroup(p)
	f.add(g)
	f.link(p)
	return g
}

// AddChild appends child, a service entry path or a group path, to the
// group at groupPath.
func (f *ServiceGroupBuildFactory) AddChild(groupPath, child string) {
	f.Group(groupPath).AddChild(child)
}

func (f *ServiceGroupBuildFactory) link(p string) {
	if p == RootGroup {
		return
	}
	f.Group(parentGroup(p)).AddChild(p)
}

// parentGroup returns the group containing group path p.
func parentGroup(p string) string {
	dir := path.Dir(strings.TrimSuffix(p, "/"))
	if dir == "." || dir == "/" {
		return RootGroup
	}
	return dir + "/"
}

func (f *ServiceGroupBuildFactory) save(w *datastream.Writer) (int32, error) {
	return f.saveSections(w, 0, nil)
}
