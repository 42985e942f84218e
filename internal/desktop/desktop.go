// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package desktop parses the INI-style source descriptions (.desktop and
// .directory files) that sycoca databases are built from.
package desktop

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EntryGroup is the group holding the main description of a file.
const EntryGroup = "Desktop Entry"

var ErrSyntax = errors.New("desktop: syntax error")

// File is a parsed source description.  Keys are stored verbatim, so
// localized variants like "Name[de]" are distinct keys.
type File struct {
	groups map[string]map[string]string
	order  []string
}

// Parse reads a description from r.  Comments, blank lines and lines
// without '=' are skipped; a malformed group header is an error.  When a
// key repeats within a group the last value wins.
func Parse(r io.Reader) (*File, error) {
	f := &File{groups: make(map[string]map[string]string)}

	var cur map[string]string
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	lineno := 0
	for s.Scan() {
		lineno++
		line := strings.TrimSpace(s.Text())
		if lineno == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] == '[' {
			if line[len(line)-1] != ']' || len(line) < 3 {
				return nil, fmt.Errorf("line %d: bad group header %q: %w", lineno, line, ErrSyntax)
			}
			name := line[1 : len(line)-1]
			if _, ok := f.groups[name]; !ok {
				f.groups[name] = make(map[string]string)
				f.order = append(f.order, name)
			}
			cur = f.groups[name]
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok || cur == nil {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		cur[k] = unescape(strings.TrimSpace(v))
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", lineno+1, err)
	}
	return f, nil
}

// Groups returns group names in file order.
func (f *File) Groups() []string {
	return f.order
}

// Group returns the keys of the named group, or nil if it is absent.
func (f *File) Group(name string) map[string]string {
	return f.groups[name]
}

// Entry returns the "Desktop Entry" group.
func (f *File) Entry() map[string]string {
	return f.groups[EntryGroup]
}

// unescape resolves the value escapes \s \n \t \r and \\.  Any other
// escape, notably an escaped list separator, is left for List.
func unescape(v string) string {
	if strings.IndexByte(v, '\\') < 0 {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' || i+1 == len(v) {
			b.WriteByte(c)
			continue
		}
		i++
		switch v[i] {
		case 's':
			b.WriteByte(' ')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// List splits v on sep, honouring backslash-escaped separators and
// dropping empty elements (including the trailing one a ';'-terminated
// list produces).
func List(v string, sep byte) []string {
	if v == "" {
		return nil
	}
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == '\\' && i+1 < len(v):
			i++
			b.WriteByte(v[i])
		case c == sep:
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return out
}

// Bool reports whether v is one of the accepted spellings of true.
func Bool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
