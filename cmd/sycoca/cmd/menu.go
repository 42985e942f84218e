// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bpowers/sycoca"
)

func newMenuCmd(e *env) *cobra.Command {
	var all bool
	c := &cobra.Command{
		Use:   "menu [GROUP]",
		Short: "Print the application menu tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			groups := sycoca.NewFactories(db).ServiceGroups
			p := sycoca.RootGroup
			if len(args) > 0 {
				p = args[0]
			}
			g := groups.Group(p)
			if g == nil {
				return fmt.Errorf("group %q not found", p)
			}
			printMenu(cmd.OutOrStdout(), groups, g, 0, all)
			return nil
		},
	}
	c.Flags().BoolVarP(&all, "all", "a", false, "include entries marked NoDisplay")
	return c
}

// maxMenuDepth bounds recursion through a corrupt group that lists an
// ancestor as a child.
const maxMenuDepth = 32

func printMenu(w io.Writer, groups *sycoca.ServiceGroupFactory, g *sycoca.ServiceGroup, depth int, all bool) {
	if depth > maxMenuDepth {
		return
	}
	indent := strings.Repeat("  ", depth)
	for _, child := range groups.Children(g) {
		switch c := child.(type) {
		case *sycoca.ServiceGroup:
			if c.NoDisplay && !all {
				continue
			}
			fmt.Fprintf(w, "%s%s/\n", indent, c.Caption)
			printMenu(w, groups, c, depth+1, all)
		case *sycoca.Service:
			if c.NoDisplay && !all {
				continue
			}
			fmt.Fprintf(w, "%s%s (%s)\n", indent, c.Name, c.MenuID)
		}
	}
}
