// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"strconv"
	"strings"

	"github.com/bpowers/sycoca/internal/desktop"
)

// Source is a parsed description that build factories create entries
// from.
type Source struct {
	// Path is the entry path: the file's location relative to the
	// resource directory it was found in, e.g. "kde5/konsole.desktop".
	Path string
	// File is where the description was read from.
	File string
	// Fields holds the "Desktop Entry" group.
	Fields map[string]string
	// Groups holds the remaining groups by name.
	Groups map[string]map[string]string
}

// NewSource wraps a parsed desktop file.
func NewSource(path, file string, f *desktop.File) *Source {
	src := &Source{
		Path:   path,
		File:   file,
		Fields: f.Entry(),
		Groups: make(map[string]map[string]string),
	}
	if src.Fields == nil {
		src.Fields = make(map[string]string)
	}
	for _, g := range f.Groups() {
		if g != desktop.EntryGroup {
			src.Groups[g] = f.Group(g)
		}
	}
	return src
}

func (s *Source) value(key string) string {
	return s.Fields[key]
}

func (s *Source) list(key string, sep byte) []string {
	return desktop.List(s.Fields[key], sep)
}

func (s *Source) boolean(key string, def bool) bool {
	v, ok := s.Fields[key]
	if !ok || v == "" {
		return def
	}
	return desktop.Bool(v)
}

func (s *Source) int32(key string, def int32) int32 {
	v, ok := s.Fields[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

func (s *Source) hidden() bool {
	return s.boolean("Hidden", false)
}
