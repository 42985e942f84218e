// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import "errors"

var (
	// ErrNoDatabase indicates no database file exists at any of the
	// candidate paths.
	ErrNoDatabase = errors.New("sycoca: no database found")

	// ErrVersionMismatch indicates the database was written with a
	// different FormatVersion.  The file must be rebuilt.
	ErrVersionMismatch = errors.New("sycoca: version mismatch")

	// ErrCorrupt indicates a structurally implausible database: bad size
	// fields, unknown type tags, invalid entries or offsets outside of
	// their region.
	ErrCorrupt = errors.New("sycoca: corrupt")

	// ErrUnavailable indicates the database couldn't be opened even after
	// a rebuild attempt.  It is terminal until the next NotifyChanged.
	ErrUnavailable = errors.New("sycoca: unavailable")

	// ErrClosed indicates the Database has been closed.
	ErrClosed = errors.New("sycoca: closed")

	errAlreadySaved   = errors.New("entry already saved in this session")
	errTooManyEntries = errors.New("too many entries in factory")
)
