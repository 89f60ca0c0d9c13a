// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package layout

import (
	"math"
)

// Region describes a single region: an allocator header followed by data
// pages, with the data pages starting on the next page boundary.
type Region struct {
	numPages uint32
	// offset, in pages, where the data section starts
	headerPages uint32
	pageSize    uint32
}

// NewRegion returns a Region built from already-known geometry, e.g. when
// reloading a layout persisted in a file header.
func NewRegion(numPages, headerPages, pageSize uint32) Region {
	return Region{
		numPages:    numPages,
		headerPages: headerPages,
		pageSize:    pageSize,
	}
}

// HeaderPages returns the number of whole pages needed for the allocator
// header of a region that can address pageCapacity pages.
func HeaderPages(s Sizer, pageCapacity, pageSize uint32) uint32 {
	headerSize := roundUpToMultipleOf(s.AllocatorBytes(pageCapacity), uint64(pageSize))
	return uint32(headerSize / uint64(pageSize))
}

func usablePages(space uint64, headerPages, pageSize uint32) (uint32, bool) {
	headerBytes := uint64(headerPages) * uint64(pageSize)
	if headerBytes >= space {
		panic("invariant broken: region header fills the whole region")
	}
	n := (space - headerBytes) / uint64(pageSize)
	if n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// CalculateRegion plans a region that fits in availableSpace.  The region
// never provisions more than desiredUsableBytes of data pages, but may
// provide less if availableSpace is the limiting factor.  ok is false when
// the result would have fewer than MinUsablePages data pages.
func CalculateRegion(s Sizer, availableSpace, desiredUsableBytes uint64, pageCapacity, pageSize uint32) (r Region, ok bool) {
	headerPages := HeaderPages(s, pageCapacity, pageSize)
	headerBytes := uint64(headerPages) * uint64(pageSize)
	if desiredUsableBytes/uint64(pageSize) < MinUsablePages {
		return Region{}, false
	}
	if availableSpace < headerBytes+MinUsablePages*uint64(pageSize) {
		return Region{}, false
	}
	maxRegionSize := desiredUsableBytes + headerBytes
	if maxRegionSize < desiredUsableBytes {
		// overflow
		maxRegionSize = math.MaxUint64
	}
	usedSpace := min(maxRegionSize, availableSpace)

	numPages, ok := usablePages(usedSpace, headerPages, pageSize)
	if !ok || numPages < MinUsablePages {
		return Region{}, false
	}

	return Region{
		numPages:    numPages,
		headerPages: headerPages,
		pageSize:    pageSize,
	}, true
}

// FullRegion returns the layout of a region in which every page the
// allocator header can address is usable.
func FullRegion(s Sizer, pageCapacity, pageSize uint32) Region {
	maxUsableBytes := uint64(pageCapacity) * uint64(pageSize)
	headerBytes := uint64(HeaderPages(s, pageCapacity, pageSize)) * uint64(pageSize)

	r, ok := CalculateRegion(s, maxUsableBytes+headerBytes, maxUsableBytes, pageCapacity, pageSize)
	if !ok {
		panic("invariant broken: page capacity too small for a full region")
	}
	return r
}

// DataSection returns the byte range of the data pages, relative to the
// start of the region.
func (r Region) DataSection() Range {
	headerBytes := uint64(r.headerPages) * uint64(r.pageSize)
	return Range{Start: headerBytes, End: headerBytes + r.UsableBytes()}
}

// HeaderPages returns the number of pages reserved for the allocator header.
func (r Region) HeaderPages() uint32 {
	return r.headerPages
}

// NumPages returns the number of usable data pages.
func (r Region) NumPages() uint32 {
	return r.numPages
}

// PageSize returns the page size in bytes.
func (r Region) PageSize() uint32 {
	return r.pageSize
}

// Len returns the total length of the region, header included.
func (r Region) Len() uint64 {
	return uint64(r.headerPages)*uint64(r.pageSize) + r.UsableBytes()
}

// UsableBytes returns the number of bytes in the data section.
func (r Region) UsableBytes() uint64 {
	return uint64(r.pageSize) * uint64(r.numPages)
}
