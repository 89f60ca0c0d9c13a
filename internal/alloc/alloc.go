// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package alloc sizes the on-disk state of the per-region buddy allocator
// and of the file-wide region tracker.
//
// A region allocator header looks like:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| page capacity     |ord | padding      |
//	+----+----+----+----+----+----+----+----+
//	| end offset of order 0..max (4B each)  |
//	+----+----+----+----+----+----+----+----+
//	| per order: free bitmap, then          |
//	| allocated bitmap, 64-bit word aligned |
//	+----+----+----+----+----+----+----+----+
//
// The region tracker has an 8-byte prefix (region count, order count)
// followed, for each order, by a 4-byte length and a bitmap with one bit
// per region.
package alloc

import (
	"math/bits"

	"github.com/bpowers/pagefile/internal/bitset"
	"github.com/bpowers/pagefile/internal/layout"
)

const (
	allocatorPrefixSize = 4 + 1 + 3
	trackerPrefixSize   = 4 + 4
	orderOffsetSize     = 4
)

// Sizer is the default layout.Sizer.
type Sizer struct{}

var _ layout.Sizer = Sizer{}

// MaxOrder returns the largest buddy order a region of pageCapacity pages
// can allocate.
func MaxOrder(pageCapacity uint32) uint8 {
	if pageCapacity == 0 {
		return 0
	}
	order := uint8(bits.Len32(pageCapacity) - 1)
	return min(order, layout.MaxMaxPageOrder)
}

// AllocatorBytes implements layout.Sizer.
func (Sizer) AllocatorBytes(pageCapacity uint32) uint64 {
	maxOrder := MaxOrder(pageCapacity)
	size := uint64(allocatorPrefixSize) + uint64(maxOrder+1)*orderOffsetSize
	// keep the bitmaps 64-bit aligned
	size = (size + 7) &^ 7
	for order := uint8(0); order <= maxOrder; order++ {
		blocks := (uint64(pageCapacity) + (1 << order) - 1) >> order
		size += 2 * bitset.RequiredBytes(blocks)
	}
	return size
}

// TrackerBytes implements layout.Sizer.
func (Sizer) TrackerBytes(numRegions uint32, numOrders uint8) uint64 {
	perOrder := orderOffsetSize + bitset.RequiredBytes(uint64(numRegions))
	return trackerPrefixSize + uint64(numOrders)*perOrder
}
