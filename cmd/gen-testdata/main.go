// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes a synthetic data directory, with applications
// and mime types, for exercising sycoca build on large trees.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"

	"github.com/bpowers/sycoca/internal/testdata"
)

func main() {
	dir := flag.StringP("dir", "d", "testdata", "data directory to write")
	apps := flag.Int("apps", 5000, "number of applications")
	mimeTypes := flag.Int("mimetypes", 500, "number of mime types")
	groups := flag.Int("groups", 20, "number of menu folders")
	seed := flag.Int64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	cfg := testdata.Config{Apps: *apps, MimeTypes: *mimeTypes, Groups: *groups}
	tree, err := testdata.Generate(afero.NewOsFs(), *dir, cfg, testdata.NewRand(*seed))
	if err != nil {
		fmt.Fprintf(os.Stderr, "gen-testdata: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d applications and %d mime types to %s\n", len(tree.Apps), len(tree.MimeTypes), *dir)
}
