// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package testdata generates synthetic source trees for tests,
// benchmarks and the gen-testdata command.
package testdata

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const (
	appPrefix = "app_"
	suffixLen = 16
)

var majors = []string{"text", "image", "audio", "video", "application"}

// Config sizes a generated tree.
type Config struct {
	Apps      int
	MimeTypes int
	// Groups is the number of menu folders apps are spread over, in
	// addition to the top level.
	Groups int
}

// Tree lists what Generate wrote, keyed the way the database stores it.
type Tree struct {
	// Apps maps entry paths to names.
	Apps map[string]string
	// MimeTypes maps mime type names to a matching file name.
	MimeTypes map[string]string
	// Offers maps mime type names to the entry paths handling them.
	Offers map[string][]string
}

// NewRand returns a generator seeded from seed, or from crypto/rand if
// seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		var seedBytes [8]byte
		_, _ = crand.Read(seedBytes[:])
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return rand.New(rand.NewSource(seed))
}

func randHex(rng *rand.Rand, n int) string {
	buf := make([]byte, n/2)
	_, _ = rng.Read(buf)
	return fmt.Sprintf("%x", buf)
}

// Generate writes cfg.MimeTypes mime types under dataDir/mimelnk and
// cfg.Apps applications under dataDir/applications.
func Generate(fsys afero.Fs, dataDir string, cfg Config, rng *rand.Rand) (*Tree, error) {
	tree := &Tree{
		Apps:      make(map[string]string, cfg.Apps),
		MimeTypes: make(map[string]string, cfg.MimeTypes),
		Offers:    make(map[string][]string),
	}

	mimeNames := make([]string, 0, cfg.MimeTypes)
	for len(mimeNames) < cfg.MimeTypes {
		major := majors[rng.Intn(len(majors))]
		minor := "x-" + randHex(rng, 8)
		name := major + "/" + minor
		if _, ok := tree.MimeTypes[name]; ok {
			continue
		}
		ext := randHex(rng, 6)
		content := fmt.Sprintf("[Desktop Entry]\nType=MimeType\nMimeType=%s\nComment=Generated %s\nPatterns=*.%s;\n", name, major, ext)
		p := path.Join(dataDir, "mimelnk", major, minor+".desktop")
		if err := afero.WriteFile(fsys, p, []byte(content), 0644); err != nil {
			return nil, err
		}
		tree.MimeTypes[name] = "file." + ext
		mimeNames = append(mimeNames, name)
	}

	for len(tree.Apps) < cfg.Apps {
		value := fmt.Sprintf("%s%s", appPrefix, randHex(rng, suffixLen))
		rel := value + ".desktop"
		if cfg.Groups > 0 {
			if g := rng.Intn(cfg.Groups + 1); g > 0 {
				rel = fmt.Sprintf("Group%02d/%s", g, rel)
			}
		}
		if _, ok := tree.Apps[rel]; ok {
			continue
		}

		var handled []string
		for range rng.Intn(4) {
			if len(mimeNames) == 0 {
				break
			}
			handled = append(handled, mimeNames[rng.Intn(len(mimeNames))])
		}
		handled = dedupe(handled)

		var b strings.Builder
		fmt.Fprintf(&b, "[Desktop Entry]\nType=Application\nName=%s\nExec=%s %%f\n", value, value)
		fmt.Fprintf(&b, "InitialPreference=%d\n", rng.Intn(10))
		if len(handled) > 0 {
			fmt.Fprintf(&b, "MimeType=%s;\n", strings.Join(handled, ";"))
		}
		p := path.Join(dataDir, "applications", rel)
		if err := afero.WriteFile(fsys, p, []byte(b.String()), 0644); err != nil {
			return nil, err
		}
		tree.Apps[rel] = value
		for _, m := range handled {
			tree.Offers[m] = append(tree.Offers[m], rel)
		}
	}
	return tree, nil
}

func dedupe(s []string) []string {
	seen := make(map[string]bool, len(s))
	out := s[:0]
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
