// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bpowers/sycoca"
)

// Info summarizes an open database.
type Info struct {
	Path            string    `yaml:"path"`
	State           string    `yaml:"state"`
	Generation      uint64    `yaml:"generation"`
	Timestamp       time.Time `yaml:"timestamp"`
	Language        string    `yaml:"language"`
	UpdateSignature uint32    `yaml:"update_signature"`
	Prefixes        []string  `yaml:"prefixes,omitempty"`
	ResourceDirs    []string  `yaml:"resource_dirs,omitempty"`
	ServiceTypes    int       `yaml:"service_types"`
	MimeTypes       int       `yaml:"mime_types"`
	Services        int       `yaml:"services"`
	ServiceGroups   int       `yaml:"service_groups"`
}

func newInfoCmd(e *env) *cobra.Command {
	var asYAML bool
	c := &cobra.Command{
		Use:   "info",
		Short: "Describe the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			info := collectInfo(db)
			if asYAML {
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "path:             %s\n", info.Path)
			fmt.Fprintf(w, "state:            %s\n", info.State)
			fmt.Fprintf(w, "generation:       %d\n", info.Generation)
			fmt.Fprintf(w, "timestamp:        %s\n", info.Timestamp.Format(time.RFC3339))
			fmt.Fprintf(w, "language:         %s\n", info.Language)
			fmt.Fprintf(w, "update signature: %08x\n", info.UpdateSignature)
			for _, d := range info.ResourceDirs {
				fmt.Fprintf(w, "resource dir:     %s\n", d)
			}
			fmt.Fprintf(w, "service types:    %d\n", info.ServiceTypes)
			fmt.Fprintf(w, "mime types:       %d\n", info.MimeTypes)
			fmt.Fprintf(w, "services:         %d\n", info.Services)
			fmt.Fprintf(w, "service groups:   %d\n", info.ServiceGroups)
			return nil
		},
	}
	c.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")
	return c
}

func collectInfo(db *sycoca.Database) Info {
	f := sycoca.NewFactories(db)
	md := db.Metadata()
	return Info{
		Path:            db.Path(),
		State:           db.State().String(),
		Generation:      db.Generation(),
		Timestamp:       md.Timestamp,
		Language:        md.Language,
		UpdateSignature: md.UpdateSignature,
		Prefixes:        md.Prefixes,
		ResourceDirs:    md.ResourceDirs,
		ServiceTypes:    len(f.ServiceTypes.AllServiceTypes()),
		MimeTypes:       len(f.ServiceTypes.AllMimeTypes()),
		Services:        len(f.Services.AllServices()),
		ServiceGroups:   len(f.ServiceGroups.AllGroups()),
	}
}
