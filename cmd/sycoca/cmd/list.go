// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bpowers/sycoca"
)

const (
	kindServices     = "services"
	kindServiceTypes = "servicetypes"
	kindMimeTypes    = "mimetypes"
	kindGroups       = "groups"
)

func newListCmd(e *env) *cobra.Command {
	var kind string
	c := &cobra.Command{
		Use:   "list",
		Short: "List the keys of every entry of a kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			keys, err := listKeys(sycoca.NewFactories(db), kind)
			if err != nil {
				return err
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&kind, "kind", "k", kindServices, "one of services, servicetypes, mimetypes or groups")
	return c
}

func listKeys(f *sycoca.Factories, kind string) ([]string, error) {
	var keys []string
	switch kind {
	case kindServices:
		for _, s := range f.Services.AllServices() {
			keys = append(keys, s.Path())
		}
	case kindServiceTypes:
		for _, t := range f.ServiceTypes.AllServiceTypes() {
			keys = append(keys, t.Name())
		}
	case kindMimeTypes:
		for _, m := range f.ServiceTypes.AllMimeTypes() {
			keys = append(keys, m.Name())
		}
	case kindGroups:
		for _, g := range f.ServiceGroups.AllGroups() {
			keys = append(keys, g.Path())
		}
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return keys, nil
}
