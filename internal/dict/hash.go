// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dict

import (
	"math"

	"github.com/bpowers/sycoca/internal/bitset"
)

const (
	// the lookup hash is masked to 26 bits, while the accumulated hashes
	// used to score candidate positions keep 30.  Both sides of the
	// format use hashKey for bucket assignment, so only hashKey's mask is
	// part of the on-disk contract.
	hashMask      = 0x3ffffff
	diversityMask = 0x3fffffff

	hashMultiplier = 13
	charModulus    = 29

	// MaxHashPositions bounds the position list, both when choosing
	// positions and when validating a dict read from disk.
	MaxHashPositions = 1024
	// MaxTableSize is the largest hashTableSize a reader will accept.
	MaxTableSize = 0x000fffff
)

// charAt returns the byte of key sampled by a signed hash position.
// Positive positions are 1-based offsets from the start of the key,
// negative positions count back from the end.  Position 0 samples nothing.
func charAt(key string, pos int32) (byte, bool) {
	switch {
	case pos > 0:
		p := int(pos) - 1
		if p < len(key) {
			return key[p], true
		}
	case pos < 0:
		p := int(-pos)
		if p < len(key) {
			return key[len(key)-p], true
		}
	}
	return 0, false
}

// hashKey replays the positional diversity hash over key.
func hashKey(key string, positions []int32) uint32 {
	var h uint32
	for _, pos := range positions {
		if c, ok := charAt(key, pos); ok {
			h = (h*hashMultiplier + uint32(c%charModulus)) & hashMask
		}
	}
	return h
}

// tableSize picks a table size near 4n+1 that isn't divisible by any
// small prime, to reduce clustering when taking hashes modulo the size.
func tableSize(n int) uint32 {
	sz := uint32(n)*4 + 1
	for sz%3 == 0 || sz%5 == 0 || sz%7 == 0 || sz%11 == 0 || sz%13 == 0 {
		sz += 2
	}
	return sz
}

// diversity counts how many distinct buckets the keys would land in if
// pos were appended to the positions already folded into hashes.
func diversity(keys []string, hashes []uint32, pos int32, sz uint32, matrix *bitset.Bitset) int {
	if pos == 0 {
		return 0
	}
	matrix.Reset()
	for i, key := range keys {
		if c, ok := charAt(key, pos); ok {
			h := (hashes[i]*hashMultiplier + uint32(c%charModulus)) & diversityMask
			matrix.Set(int64(h % sz))
		}
	}
	return matrix.Count()
}

func addDiversity(keys []string, hashes []uint32, pos int32) {
	for i, key := range keys {
		if c, ok := charAt(key, pos); ok {
			hashes[i] = (hashes[i]*hashMultiplier + uint32(c%charModulus)) & diversityMask
		}
	}
}

// choosePositions greedily selects the character positions that spread
// keys over the most buckets, stopping once another position stops
// helping.
func choosePositions(keys []string, sz uint32) []int32 {
	maxLength := 0
	for _, key := range keys {
		if len(key) > maxLength {
			maxLength = len(key)
		}
	}

	hashes := make([]uint32, len(keys))
	matrix := bitset.New(int64(sz))

	// diversity from the previous round for each candidate position, used
	// to skip positions that were already worse than the best seen so far
	oldDiv := make([]int, 2*maxLength+1)
	for i := range oldDiv {
		oldDiv[i] = math.MaxInt
	}

	var positions []int32
	lastDiv := 0
	for len(positions) < MaxHashPositions {
		maxDiv := 0
		maxPos := int32(0)
		for p := -maxLength; p <= maxLength; p++ {
			if oldDiv[p+maxLength] < maxDiv {
				continue
			}
			div := diversity(keys, hashes, int32(p), sz, matrix)
			if div > maxDiv {
				maxDiv = div
				maxPos = int32(p)
			}
			oldDiv[p+maxLength] = div
		}
		if maxDiv <= lastDiv {
			break
		}
		lastDiv = maxDiv
		addDiversity(keys, hashes, maxPos)
		positions = append(positions, maxPos)
	}

	return positions
}
