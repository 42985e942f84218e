// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

// Factories bundles the standard read-side factories of a Database.
type Factories struct {
	ServiceTypes  *ServiceTypeFactory
	Services      *ServiceFactory
	ServiceGroups *ServiceGroupFactory
}

func NewFactories(db *Database) *Factories {
	types := NewServiceTypeFactory(db)
	services := NewServiceFactory(db, types)
	return &Factories{
		ServiceTypes:  types,
		Services:      services,
		ServiceGroups: NewServiceGroupFactory(db, services),
	}
}

// BuildFactories bundles the standard build factories.
type BuildFactories struct {
	ServiceTypes  *ServiceTypeBuildFactory
	Services      *ServiceBuildFactory
	ServiceGroups *ServiceGroupBuildFactory
}

func NewBuildFactories(opts ...FactoryOption) *BuildFactories {
	types := NewServiceTypeBuildFactory(opts...)
	return &BuildFactories{
		ServiceTypes:  types,
		Services:      NewServiceBuildFactory(types, opts...),
		ServiceGroups: NewServiceGroupBuildFactory(opts...),
	}
}

// AddTo registers the factories with b in dependency order.
func (f *BuildFactories) AddTo(b *Builder) {
	b.AddFactory(f.ServiceTypes)
	b.AddFactory(f.Services)
	b.AddFactory(f.ServiceGroups)
}
