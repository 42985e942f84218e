// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package sycoca implements the system configuration cache: a single
// immutable binary file describing installed applications, service types,
// mime types and menu groups, built once by an external builder process
// and read by many processes through hashed, random-access lookups.
//
// A database file looks like:
//
//	┌──────────────────────────────┐
//	│ format version               │
//	├──────────────────────────────┤
//	│ factory directory            │  (factoryId, factoryOffset)*, 0
//	├──────────────────────────────┤
//	│ trailer                      │  prefixes, timestamp, language,
//	│                              │  update signature, resource dirs
//	├──────────────────────────────┤
//	│ factory                      │  header: dictOffset, beginEntryOffset,
//	│                              │          endEntryOffset, extra words
//	│   entries                    │  (typeTag, path, fields)*
//	│   linear index               │  count, entryOffset*
//	│   string dict                │  see internal/dict
//	│   factory-specific sections  │
//	├──────────────────────────────┤
//	│ factory ...                  │
//	└──────────────────────────────┘
//
// All integers are 32-bit big-endian and all offsets are absolute.  Any
// difference between the version a file was written with and FormatVersion
// makes the whole file unusable; there is no partial compatibility.
//
// Readers never mutate the file.  A Builder writes a complete new file to
// a temporary location and atomically renames it into place, after which
// readers are told to reopen with Database.NotifyChanged.  Lookups never
// return errors: absence and corruption both surface as nil or empty
// results, with corruption additionally flagged on the Database so that a
// rebuild can be attempted.
package sycoca
