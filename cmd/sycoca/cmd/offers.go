// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bpowers/sycoca"
)

func newOffersCmd(e *env) *cobra.Command {
	var forFile bool
	c := &cobra.Command{
		Use:   "offers TYPE",
		Short: "List the services offered for a service type or mime type",
		Long: `List the services offered for a service type or mime type, most
preferred first.  Offers registered for a parent type are included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			f := sycoca.NewFactories(db)

			typeName := args[0]
			if forFile {
				mts := f.ServiceTypes.MimeTypesForFileName(typeName)
				if len(mts) == 0 {
					return fmt.Errorf("no mime type matches %q", typeName)
				}
				typeName = mts[0].Name()
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], typeName)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, o := range f.Services.Offers(typeName) {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.Preference, o.Service.Name, o.Service.Path(), o.ServiceType)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&forFile, "file", false, "TYPE is a file name whose mime type is looked up")
	return c
}
