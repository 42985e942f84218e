// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package scan walks the source trees a sycoca database is built from
// and feeds them into build factories.
package scan

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	farm "github.com/dgryski/go-farm"
	"github.com/spf13/afero"

	"github.com/bpowers/sycoca"
	"github.com/bpowers/sycoca/internal/desktop"
)

const (
	desktopSuffix   = ".desktop"
	directoryFile   = ".directory"
	directorySuffix = ".directory"
)

// Resource names, as passed to sycoca.Database.NotifyChanged.
const (
	ResourceApplications = "apps"
	ResourceServices     = "services"
	ResourceServiceTypes = "servicetypes"
	ResourceMimeTypes    = "mime"
)

// Dirs lists the source directories of each resource, highest priority
// first.
type Dirs struct {
	Applications []string `mapstructure:"applications" yaml:"applications"`
	Services     []string `mapstructure:"services" yaml:"services"`
	ServiceTypes []string `mapstructure:"servicetypes" yaml:"servicetypes"`
	MimeTypes    []string `mapstructure:"mimetypes" yaml:"mimetypes"`
}

// All returns every directory, in resource then priority order.
func (d Dirs) All() []string {
	var all []string
	all = append(all, d.Applications...)
	all = append(all, d.Services...)
	all = append(all, d.ServiceTypes...)
	all = append(all, d.MimeTypes...)
	return all
}

// DirsFor returns the standard resource directories under each data
// directory.
func DirsFor(dataDirs []string) Dirs {
	var d Dirs
	for _, dir := range dataDirs {
		d.Applications = append(d.Applications, filepath.Join(dir, "applications"))
		d.Services = append(d.Services, filepath.Join(dir, "kservices5"))
		d.ServiceTypes = append(d.ServiceTypes, filepath.Join(dir, "kservicetypes5"))
		d.MimeTypes = append(d.MimeTypes, filepath.Join(dir, "mimelnk"))
	}
	return d
}

// DataDirs returns $XDG_DATA_HOME followed by $XDG_DATA_DIRS, with the
// XDG base directory defaults.
func DataDirs() []string {
	home := os.Getenv("XDG_DATA_HOME")
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(h, ".local", "share")
		}
	}
	dirs := os.Getenv("XDG_DATA_DIRS")
	if dirs == "" {
		dirs = "/usr/local/share:/usr/share"
	}
	var out []string
	if home != "" {
		out = append(out, home)
	}
	for _, d := range strings.Split(dirs, ":") {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Option configures a Scanner.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	language string
}

// WithLogger sets an optional logger.  If not provided, no logging output
// will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithLanguage records the language the database is built for.
func WithLanguage(lang string) Option {
	return func(opts *options) {
		opts.language = lang
	}
}

// Stats summarizes a scan.
type Stats struct {
	Files   int
	Added   int
	Skipped int
	Errors  int
}

// Scanner reads source descriptions from a filesystem.
type Scanner struct {
	fs       afero.Fs
	dirs     Dirs
	prefixes []string
	logger   *slog.Logger
	language string
}

// New returns a Scanner over fsys.  prefixes are recorded in the
// database trailer and may be nil.
func New(fsys afero.Fs, dirs Dirs, prefixes []string, opts ...Option) *Scanner {
	options := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&options)
	}
	return &Scanner{
		fs:       fsys,
		dirs:     dirs,
		prefixes: prefixes,
		logger:   options.logger,
		language: options.language,
	}
}

// UpdateSignature fingerprints the resource directory configuration.  A
// database built with a different signature must be rebuilt from
// scratch.
func (s *Scanner) UpdateSignature() uint32 {
	var b strings.Builder
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], uint32(sycoca.FormatVersion))
	b.Write(v[:])
	for _, group := range [][]string{s.dirs.Applications, s.dirs.Services, s.dirs.ServiceTypes, s.dirs.MimeTypes} {
		b.WriteString(strings.Join(group, "\x00"))
		b.WriteByte('\x01')
	}
	b.WriteString(s.language)
	return farm.Fingerprint32([]byte(b.String()))
}

// CheckTimestamps reports whether any source file or directory was
// modified after since.
func (s *Scanner) CheckTimestamps(ctx context.Context, since time.Time) (bool, error) {
	errNewer := errors.New("newer")
	for _, root := range s.dirs.All() {
		if !s.exists(root) {
			continue
		}
		err := afero.Walk(s.fs, root, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if info.ModTime().After(since) {
				s.logger.Debug("source changed", "path", p, "mtime", info.ModTime())
				return errNewer
			}
			return nil
		})
		if errors.Is(err, errNewer) {
			return true, nil
		} else if err != nil {
			return false, fmt.Errorf("afero.Walk(%s): %w", root, err)
		}
	}
	return false, nil
}

// Scan reads every resource directory into fresh build factories.
func (s *Scanner) Scan(ctx context.Context, opts ...sycoca.FactoryOption) (*sycoca.BuildFactories, Stats, error) {
	bf := sycoca.NewBuildFactories(opts...)
	var stats Stats

	// applications are scanned before plugins so that an application
	// wins a path collision with a plugin
	for _, dir := range s.dirs.ServiceTypes {
		if err := s.walk(ctx, dir, &stats, func(rel string, src *sycoca.Source) bool {
			return bf.ServiceTypes.AddEntry(bf.ServiceTypes.CreateEntry(src))
		}); err != nil {
			return nil, stats, err
		}
	}
	for _, dir := range s.dirs.MimeTypes {
		if err := s.walk(ctx, dir, &stats, func(rel string, src *sycoca.Source) bool {
			return bf.ServiceTypes.AddEntry(bf.ServiceTypes.CreateEntry(src))
		}); err != nil {
			return nil, stats, err
		}
	}
	for _, dir := range s.dirs.Applications {
		if err := s.walk(ctx, dir, &stats, func(rel string, src *sycoca.Source) bool {
			if path.Base(rel) == directoryFile {
				groupPath := path.Dir(rel) + "/"
				if groupPath == "./" {
					groupPath = sycoca.RootGroup
				}
				return bf.ServiceGroups.AddEntry(bf.ServiceGroups.CreateEntry(groupPath, src))
			}
			e := bf.Services.CreateEntry(src)
			if !bf.Services.AddEntry(e) {
				return false
			}
			if svc, ok := e.(*sycoca.Service); ok && !svc.IsDeleted() && !svc.NoDisplay {
				bf.ServiceGroups.AddChild(groupOf(rel), rel)
			}
			return true
		}); err != nil {
			return nil, stats, err
		}
	}

	for _, dir := range s.dirs.Services {
		if err := s.walk(ctx, dir, &stats, func(rel string, src *sycoca.Source) bool {
			return bf.Services.AddEntry(bf.Services.CreateEntry(src))
		}); err != nil {
			return nil, stats, err
		}
	}
	s.logger.Info("scanned sources", "files", stats.Files, "added", stats.Added, "skipped", stats.Skipped, "errors", stats.Errors)
	return bf, stats, nil
}

// groupOf returns the menu group an application at rel belongs to.
func groupOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return sycoca.RootGroup
	}
	return dir + "/"
}

// Build scans the sources and registers the result, along with the
// trailer metadata, with b.
func (s *Scanner) Build(ctx context.Context, b *sycoca.Builder, now time.Time, opts ...sycoca.FactoryOption) (Stats, error) {
	bf, stats, err := s.Scan(ctx, opts...)
	if err != nil {
		return stats, err
	}
	bf.AddTo(b)
	b.SetMetadata(sycoca.Metadata{
		Prefixes:        s.prefixes,
		Timestamp:       now,
		Language:        s.language,
		UpdateSignature: s.UpdateSignature(),
		ResourceDirs:    s.dirs.All(),
	})
	return stats, nil
}

// walk parses every .desktop and .directory file under root in lexical
// order and hands it to add along with its slash-separated path relative
// to root.  Unreadable or malformed files are logged and skipped.
func (s *Scanner) walk(ctx context.Context, root string, stats *Stats, add func(rel string, src *sycoca.Source) bool) error {
	if !s.exists(root) {
		s.logger.Debug("skipping missing directory", "path", root)
		return nil
	}
	err := afero.Walk(s.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable path", "path", p, "err", err)
			stats.Errors++
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || !(strings.HasSuffix(p, desktopSuffix) || strings.HasSuffix(p, directorySuffix)) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("filepath.Rel: %w", err)
		}
		rel = filepath.ToSlash(rel)

		stats.Files++
		src, err := s.parse(p, rel)
		if err != nil {
			s.logger.Warn("skipping malformed file", "path", p, "err", err)
			stats.Errors++
			return nil
		}
		if add(rel, src) {
			stats.Added++
		} else {
			stats.Skipped++
		}
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipDir) {
		return fmt.Errorf("afero.Walk(%s): %w", root, err)
	}
	return nil
}

func (s *Scanner) exists(p string) bool {
	_, err := s.fs.Stat(p)
	return err == nil
}

func (s *Scanner) parse(p, rel string) (*sycoca.Source, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := desktop.Parse(f)
	if err != nil {
		return nil, err
	}
	return sycoca.NewSource(rel, p, d), nil
}
