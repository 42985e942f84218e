// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datastream implements the positional, fixed-width codec used by
// sycoca database files.
//
// All integers are big-endian.  Strings are written as a 32-bit byte length
// followed by UTF-8 bytes; a length of 0xFFFFFFFF denotes a null string and
// decodes to "".  String lists are a 32-bit count followed by that many
// strings.
//
// The Writer tracks its absolute position so callers can record the offset
// of anything they write and backpatch fixed-width fields later.  The Reader
// works over an immutable byte slice (usually an mmap'd file) and never reads
// outside of it: every out-of-range access becomes a sticky error instead of
// a panic.
package datastream
