// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package layout computes the on-disk geometry of a pagefile database.
//
// A database file looks like:
//
//	┌───────────────────────┐ 0
//	│ database header       │
//	├───────────────────────┤ DBHeaderSize
//	│ region tracker        │
//	├───────────────────────┤
//	│ padding               │
//	├───────────────────────┤ superheader bytes (page aligned)
//	│ region 0              │
//	│  allocator header     │
//	│  data pages           │
//	├───────────────────────┤
//	│ ... full regions      │
//	├───────────────────────┤
//	│ trailing region       │
//	│ (optional, partial)   │
//	└───────────────────────┘
//
// Every region but the last has identical length, which is what lets
// Database.RegionBaseAddress be a single multiply.
package layout

import (
	"errors"
)

const (
	// DBHeaderSize is the number of bytes reserved for the fixed database
	// header at the start of the file, before the region tracker.
	DBHeaderSize = 512

	// MinUsablePages is the smallest number of data pages a region may have.
	MinUsablePages = 10

	// MaxMaxPageOrder bounds the largest buddy order an allocator can track.
	MaxMaxPageOrder = 20
)

// ErrOutOfSpace is returned when the requested capacity cannot hold the
// superheader plus a single minimally-sized region.
var ErrOutOfSpace = errors.New("layout: database capacity too small")

// Sizer reports how many bytes the structures that live in reserved header
// space need.  The buddy allocator and region tracker implement their own
// on-disk formats; the layout only needs their sizes.
type Sizer interface {
	// AllocatorBytes returns the size of a region allocator header able to
	// address pageCapacity pages.
	AllocatorBytes(pageCapacity uint32) uint64
	// TrackerBytes returns the size of a region tracker able to record
	// numRegions regions across numOrders buddy orders.
	TrackerBytes(numRegions uint32, numOrders uint8) uint64
}

// Range is a half-open byte range [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of bytes in the range.
func (r Range) Len() uint64 {
	return r.End - r.Start
}

func roundUpToMultipleOf(value, multiple uint64) uint64 {
	if value%multiple == 0 {
		return value
	}
	return value + multiple - value%multiple
}

func divEven(value, denominator uint64) uint64 {
	if value%denominator != 0 {
		panic("invariant broken: expected value to be a multiple of denominator")
	}
	return value / denominator
}
