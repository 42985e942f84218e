// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bpowers/sycoca"
	"github.com/bpowers/sycoca/scan"
)

type buildFlags struct {
	noIncremental bool
	global        bool
	output        string
}

func newBuildCmd(e *env) *cobra.Command {
	var flags buildFlags
	c := &cobra.Command{
		Use:   "build",
		Short: "Scan the source directories and write a new database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.build(cmd, flags)
		},
	}
	c.Flags().BoolVar(&flags.noIncremental, "noincremental", false, "rebuild even if the database is up to date")
	c.Flags().BoolVar(&flags.global, "global", false, "write the system-wide database")
	c.Flags().StringVarP(&flags.output, "output", "o", "", "database file to write")
	return c
}

func (e *env) outputPath(flags buildFlags) (string, error) {
	switch {
	case flags.output != "":
		return flags.output, nil
	case flags.global:
		if e.cfg.Database.GlobalPath == "" {
			return "", fmt.Errorf("--global: database.global_path is not configured")
		}
		return e.cfg.Database.GlobalPath, nil
	}
	return sycoca.LocalPath(e.cfg.Database.Path)
}

func (e *env) build(cmd *cobra.Command, flags buildFlags) error {
	ctx := cmd.Context()
	out, err := e.outputPath(flags)
	if err != nil {
		return err
	}
	scanner := scan.New(afero.NewOsFs(), e.cfg.Dirs, e.cfg.DataDirs,
		scan.WithLogger(e.logger),
		scan.WithLanguage(e.cfg.Language),
	)

	if !flags.noIncremental && e.upToDate(cmd, scanner, out) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", out)
		return nil
	}

	start := time.Now()
	b := sycoca.NewBuilder(sycoca.WithBuilderLogger(e.logger))
	stats, err := scanner.Build(ctx, b, start, sycoca.WithFactoryLogger(e.logger))
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := b.WriteFile(out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	e.logger.Info("built database",
		"path", out,
		"files", stats.Files,
		"added", stats.Added,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"elapsed", time.Since(start))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d entries from %d files (%d skipped, %d errors)\n",
		out, stats.Added, stats.Files, stats.Skipped, stats.Errors)
	return nil
}

// upToDate reports whether the database at out was built from the same
// directories and language and no source has changed since.
func (e *env) upToDate(cmd *cobra.Command, scanner *scan.Scanner, out string) bool {
	db := sycoca.New(
		sycoca.WithLogger(e.logger),
		sycoca.WithPath(out),
		sycoca.WithGlobalPath(""),
		sycoca.WithInvoker(nil),
	)
	defer db.Close()
	if err := db.Ready(); err != nil {
		e.logger.Debug("no usable database, building", "path", out, "err", err)
		return false
	}
	// $SYCOCA_DB takes precedence over WithPath
	if db.Path() != out {
		return false
	}
	md := db.Metadata()
	if md.UpdateSignature != scanner.UpdateSignature() || md.Language != e.cfg.Language {
		e.logger.Info("source configuration changed, full rebuild", "path", out)
		return false
	}
	changed, err := scanner.CheckTimestamps(cmd.Context(), md.Timestamp)
	if err != nil {
		e.logger.Warn("checking timestamps", "err", err)
		return false
	}
	return !changed
}
