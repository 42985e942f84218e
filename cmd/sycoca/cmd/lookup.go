// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bpowers/sycoca"
)

type lookupFlags struct {
	name     bool
	menuID   bool
	typeName bool
	group    bool
}

func newLookupCmd(e *env) *cobra.Command {
	var flags lookupFlags
	c := &cobra.Command{
		Use:   "lookup KEY",
		Short: "Print the entry stored under a key",
		Long: `Print the entry stored under a key.  By default KEY is a service's
entry path, e.g. "kde5/konsole.desktop".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			ent := lookup(sycoca.NewFactories(db), flags, args[0])
			if ent == nil {
				return fmt.Errorf("%q: not found", args[0])
			}
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(viewOf(ent))
		},
	}
	c.Flags().BoolVar(&flags.name, "name", false, "KEY is a desktop entry name")
	c.Flags().BoolVar(&flags.menuID, "menu-id", false, "KEY is a menu ID")
	c.Flags().BoolVar(&flags.typeName, "type", false, "KEY is a service type or mime type name")
	c.Flags().BoolVar(&flags.group, "group", false, "KEY is a menu group path")
	c.MarkFlagsMutuallyExclusive("name", "menu-id", "type", "group")
	return c
}

// lookup returns nil rather than a typed nil pointer when nothing
// matches.
func lookup(f *sycoca.Factories, flags lookupFlags, key string) sycoca.Entry {
	switch {
	case flags.name:
		if s := f.Services.ServiceByDesktopName(key); s != nil {
			return s
		}
	case flags.menuID:
		if s := f.Services.ServiceByMenuID(key); s != nil {
			return s
		}
	case flags.typeName:
		return f.ServiceTypes.Find(key)
	case flags.group:
		if g := f.ServiceGroups.Group(key); g != nil {
			return g
		}
	default:
		if s := f.Services.ServiceByPath(key); s != nil {
			return s
		}
	}
	return nil
}
