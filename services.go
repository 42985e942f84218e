// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/bpowers/sycoca/internal/datastream"
)

// extra header words of the service factory
const (
	serviceNameDict = iota
	serviceMenuIDDict
	serviceOfferList
	serviceExtraWords
)

const offerRecordSize = 12

var errTypesNotSaved = errors.New("service types must be saved before services")

// Offer is a service offered for a service type or mime type.
type Offer struct {
	Service    *Service
	Preference int32
	// ServiceType is the type the offer was registered for: the
	// requested type or one of its ancestors.
	ServiceType string
}

// ServiceFactory reads services.  Besides the primary dict keyed by entry
// path it stores a dict keyed by desktop entry name, one keyed by menu
// ID, and a list of offers sorted by service type.
type ServiceFactory struct {
	f     *factory
	types *ServiceTypeFactory
}

// NewServiceFactory returns a ServiceFactory.  types is used to resolve
// offers and may be nil, in which case Offers is always empty.
func NewServiceFactory(db *Database, types *ServiceTypeFactory) *ServiceFactory {
	return &ServiceFactory{
		f:     newFactory(db, ServiceFactoryID, serviceExtraWords, TagService),
		types: types,
	}
}

// ServiceByPath returns the service stored under its entry path, e.g.
// "kde5/konsole.desktop".
func (s *ServiceFactory) ServiceByPath(path string) *Service {
	return withDB(s.f.db, func() *Service {
		return s.serviceByPath(path)
	})
}

func (s *ServiceFactory) serviceByPath(path string) *Service {
	return entryAs[*Service](s.f.findEntry(path))
}

func desktopNameOf(e Entry) string {
	if s, ok := e.(*Service); ok {
		return s.DesktopEntryName
	}
	return ""
}

func menuIDOf(e Entry) string {
	if s, ok := e.(*Service); ok {
		return s.MenuID
	}
	return ""
}

// ServiceByDesktopName returns the highest-priority service whose
// desktop entry name is name.
func (s *ServiceFactory) ServiceByDesktopName(name string) *Service {
	return withDB(s.f.db, func() *Service {
		if !s.f.load() {
			return nil
		}
		return entryAs[*Service](s.f.lookup(s.f.extraDict(serviceNameDict), name, desktopNameOf))
	})
}

// ServicesByDesktopName returns every service whose desktop entry name is
// name.
func (s *ServiceFactory) ServicesByDesktopName(name string) []*Service {
	return withDB(s.f.db, func() []*Service {
		if !s.f.load() {
			return nil
		}
		return entriesAs[*Service](s.f.lookupAll(s.f.extraDict(serviceNameDict), name, desktopNameOf))
	})
}

// ServiceByMenuID returns the application with the given menu ID, e.g.
// "kde5-konsole.desktop".
func (s *ServiceFactory) ServiceByMenuID(id string) *Service {
	return withDB(s.f.db, func() *Service {
		if !s.f.load() {
			return nil
		}
		return entryAs[*Service](s.f.lookup(s.f.extraDict(serviceMenuIDDict), id, menuIDOf))
	})
}

func (s *ServiceFactory) AllServices() []*Service {
	return withDB(s.f.db, func() []*Service {
		return entriesAs[*Service](s.f.allEntries())
	})
}

// Offers returns the services registered for serviceType, followed by
// those registered for its ancestors.  Within a type, offers are ordered
// by descending preference.  Each service appears once.
func (s *ServiceFactory) Offers(serviceType string) []Offer {
	return withDB(s.f.db, func() []Offer {
		if s.types == nil || !s.f.load() {
			return nil
		}
		var offers []Offer
		seen := make(map[int32]bool)
		for _, t := range s.types.ancestors(serviceType) {
			for _, o := range s.offersFor(t) {
				if !seen[o.Service.Offset()] {
					seen[o.Service.Offset()] = true
					offers = append(offers, o)
				}
			}
		}
		return offers
	})
}

// offersFor binary searches the offer list for records of t.
func (s *ServiceFactory) offersFor(t Entry) []Offer {
	off := s.f.extra[serviceOfferList]
	if off == 0 {
		return nil
	}
	if off < s.f.end || int64(off) >= s.f.data.Len() {
		s.f.db.flagError(fmt.Errorf("%s: offer list offset %d: %w", s.f.id, off, ErrCorrupt))
		return nil
	}
	r := s.f.data.At(int64(off))
	n := r.Int32()
	if n < 0 || int64(n)*offerRecordSize > r.Len()-r.Pos() {
		s.f.db.flagError(fmt.Errorf("%s: offer list of %d: %w", s.f.id, n, ErrCorrupt))
		return nil
	}
	records := int64(off) + 4
	record := func(i int) offerRecord {
		rr := s.f.data.At(records + int64(i)*offerRecordSize)
		return offerRecord{typeOff: rr.Int32(), serviceOff: rr.Int32(), preference: rr.Int32()}
	}

	typeOff := t.Offset()
	var offers []Offer
	for i := sort.Search(int(n), func(i int) bool { return record(i).typeOff >= typeOff }); i < int(n); i++ {
		rec := record(i)
		if rec.typeOff != typeOff {
			break
		}
		if svc := entryAs[*Service](s.f.createEntry(rec.serviceOff)); svc != nil {
			offers = append(offers, Offer{Service: svc, Preference: rec.preference, ServiceType: t.Path()})
		}
	}
	return offers
}

type offerRecord struct {
	typeOff    int32
	serviceOff int32
	preference int32
}

// ServiceBuildFactory collects services.  Offers are resolved against
// types, which must be saved first.
type ServiceBuildFactory struct {
	buildFactory
	types *ServiceTypeBuildFactory
}

func NewServiceBuildFactory(types *ServiceTypeBuildFactory, opts ...FactoryOption) *ServiceBuildFactory {
	return &ServiceBuildFactory{
		buildFactory: newBuildFactory(ServiceFactoryID, opts),
		types:        types,
	}
}

// CreateEntry returns a Service for src, or nil if src is invalid.
// Hidden services are returned deleted so they can mask others.
func (f *ServiceBuildFactory) CreateEntry(src *Source) Entry {
	s := serviceFromSource(src)
	if s.IsDeleted() || s.IsValid() {
		return s
	}
	switch {
	case s.Name == "":
		f.logger.Warn("invalid service: no Name", "path", src.Path)
	case s.Type != TypeApplication && s.Type != TypeService:
		f.logger.Debug("skipping unsupported type", "path", src.Path, "type", s.Type)
	default:
		f.logger.Warn("invalid application: no Exec", "path", src.Path)
	}
	return nil
}

// AddEntry adds a Service.
func (f *ServiceBuildFactory) AddEntry(e Entry) bool {
	if e == nil || e.Tag() != TagService {
		return false
	}
	return f.add(e)
}

func (f *ServiceBuildFactory) save(w *datastream.Writer) (int32, error) {
	return f.saveSections(w, serviceExtraWords, func(w *datastream.Writer) ([]int32, error) {
		live := f.Entries()
		nameOff, err := saveDict(w, live, desktopNameOf)
		if err != nil {
			return nil, fmt.Errorf("desktop name dict: %w", err)
		}
		menuOff, err := saveDict(w, live, menuIDOf)
		if err != nil {
			return nil, fmt.Errorf("menu id dict: %w", err)
		}
		offerOff, err := f.saveOffers(w, entriesAs[*Service](live))
		if err != nil {
			return nil, err
		}
		extra := make([]int32, serviceExtraWords)
		extra[serviceNameDict] = nameOff
		extra[serviceMenuIDDict] = menuOff
		extra[serviceOfferList] = offerOff
		return extra, nil
	})
}

func (f *ServiceBuildFactory) saveOffers(w *datastream.Writer, services []*Service) (int32, error) {
	var records []offerRecord
	if f.types != nil {
		for _, s := range services {
			for _, st := range s.ServiceTypes {
				t := f.types.lookup(st.ServiceType)
				if t == nil {
					f.logger.Debug("offer for unknown service type", "service", s.Path(), "type", st.ServiceType)
					continue
				}
				if t.Offset() == 0 {
					return 0, errTypesNotSaved
				}
				records = append(records, offerRecord{typeOff: t.Offset(), serviceOff: s.Offset(), preference: st.Preference})
			}
		}
	}
	slices.SortFunc(records, func(a, b offerRecord) int {
		return cmp.Or(
			cmp.Compare(a.typeOff, b.typeOff),
			cmp.Compare(b.preference, a.preference),
			cmp.Compare(a.serviceOff, b.serviceOff),
		)
	})

	off := w.Offset()
	w.Int32(int32(len(records)))
	for _, r := range records {
		w.Int32(r.typeOff)
		w.Int32(r.serviceOff)
		w.Int32(r.preference)
	}
	return off, w.Err()
}
