// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pagefile

import (
	"encoding/binary"
	"fmt"

	"github.com/dgryski/go-farm"

	"github.com/bpowers/pagefile/internal/layout"
)

const (
	magicFileHeader   = 0xC0FFEE0F
	fileFormatVersion = 1

	// bytes of the header actually in use; the rest of DBHeaderSize is zero
	fileHeaderSize = 56
	checksumOff    = 48
)

type fileHeader struct {
	magic              uint32
	formatVersion      uint32
	pageSize           uint32
	regionPageCapacity uint32
	superheaderPages   uint32
	regionHeaderPages  uint32
	numFullRegions     uint32
	trailingPages      uint32
	dbCapacity         uint64
	regionTrackerLen   uint64
}

func newFileHeader(l layout.Database, dbCapacity uint64, regionPageCapacity uint32) *fileHeader {
	full := l.FullRegionLayout()
	h := &fileHeader{
		magic:              magicFileHeader,
		formatVersion:      fileFormatVersion,
		pageSize:           full.PageSize(),
		regionPageCapacity: regionPageCapacity,
		superheaderPages:   l.SuperheaderPages(),
		regionHeaderPages:  full.HeaderPages(),
		numFullRegions:     l.NumFullRegions(),
		dbCapacity:         dbCapacity,
		regionTrackerLen:   l.RegionTrackerRange().Len(),
	}
	if trailing, ok := l.TrailingRegionLayout(); ok {
		h.trailingPages = trailing.NumPages()
	}
	return h
}

// Layout rebuilds the database layout the header describes.
func (h *fileHeader) Layout() layout.Database {
	full := layout.NewRegion(h.regionPageCapacity, h.regionHeaderPages, h.pageSize)
	var trailing *layout.Region
	if h.trailingPages > 0 {
		r := layout.NewRegion(h.trailingPages, h.regionHeaderPages, h.pageSize)
		trailing = &r
	}
	return layout.New(h.superheaderPages, h.regionTrackerLen, h.numFullRegions, full, trailing)
}

// MarshalTo writes the header into the first fileHeaderSize bytes of buf.
func (h *fileHeader) MarshalTo(buf []byte) error {
	if len(buf) < fileHeaderSize {
		return fmt.Errorf("buf too short: %d < %d", len(buf), fileHeaderSize)
	}
	buf = buf[:fileHeaderSize]

	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.formatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], h.pageSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.regionPageCapacity)
	binary.LittleEndian.PutUint32(buf[16:20], h.superheaderPages)
	binary.LittleEndian.PutUint32(buf[20:24], h.regionHeaderPages)
	binary.LittleEndian.PutUint32(buf[24:28], h.numFullRegions)
	binary.LittleEndian.PutUint32(buf[28:32], h.trailingPages)
	binary.LittleEndian.PutUint64(buf[32:40], h.dbCapacity)
	binary.LittleEndian.PutUint64(buf[40:48], h.regionTrackerLen)
	binary.LittleEndian.PutUint64(buf[checksumOff:fileHeaderSize], farm.Hash64(buf[:checksumOff]))

	return nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("headerBytes too short: %d < %d: %w", len(headerBytes), fileHeaderSize, ErrCorruptHeader)
	}
	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[0:4])
	if h.magic != magicFileHeader {
		return fmt.Errorf("bad magic number (%x) -- not a pagefile or corrupted: %w", h.magic, ErrCorruptHeader)
	}

	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.formatVersion != fileFormatVersion {
		return fmt.Errorf("this version of pagefile can only read v%d files; found v%d", fileFormatVersion, h.formatVersion)
	}

	expectedChecksum := binary.LittleEndian.Uint64(headerBytes[checksumOff:fileHeaderSize])
	if checksum := farm.Hash64(headerBytes[:checksumOff]); checksum != expectedChecksum {
		return fmt.Errorf("checksum failed (%x != %x): %w", expectedChecksum, checksum, ErrCorruptHeader)
	}

	h.pageSize = binary.LittleEndian.Uint32(headerBytes[8:12])
	h.regionPageCapacity = binary.LittleEndian.Uint32(headerBytes[12:16])
	h.superheaderPages = binary.LittleEndian.Uint32(headerBytes[16:20])
	h.regionHeaderPages = binary.LittleEndian.Uint32(headerBytes[20:24])
	h.numFullRegions = binary.LittleEndian.Uint32(headerBytes[24:28])
	h.trailingPages = binary.LittleEndian.Uint32(headerBytes[28:32])
	h.dbCapacity = binary.LittleEndian.Uint64(headerBytes[32:40])
	h.regionTrackerLen = binary.LittleEndian.Uint64(headerBytes[40:48])

	if err := ValidateGeometry(h.pageSize, h.regionPageCapacity); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptHeader, err)
	}
	if h.numFullRegions == 0 && h.trailingPages == 0 {
		return fmt.Errorf("header describes no regions: %w", ErrCorruptHeader)
	}
	if layout.DBHeaderSize+h.regionTrackerLen > uint64(h.superheaderPages)*uint64(h.pageSize) {
		return fmt.Errorf("region tracker (%d bytes) overflows superheader: %w", h.regionTrackerLen, ErrCorruptHeader)
	}

	return nil
}

// ValidateGeometry checks a page size and full-region page capacity before
// they reach layout planning.  A capacity below layout.MinUsablePages can't
// hold a region, so that error wraps ErrOutOfSpace.
func ValidateGeometry(pageSize, regionPageCapacity uint32) error {
	if err := validPageSize(pageSize); err != nil {
		return err
	}
	if regionPageCapacity < layout.MinUsablePages {
		return fmt.Errorf("region page capacity %d is below the minimum of %d: %w",
			regionPageCapacity, layout.MinUsablePages, ErrOutOfSpace)
	}
	return nil
}

func validPageSize(pageSize uint32) error {
	if pageSize < 512 || pageSize&(pageSize-1) != 0 {
		return fmt.Errorf("page size %d must be a power of two >= 512", pageSize)
	}
	return nil
}
