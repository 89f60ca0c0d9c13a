// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package layout

import (
	"fmt"
	"math"
)

// Database describes the geometry of a whole database file: the
// superheader, some number of identical full regions, and an optional
// trailing region that may be smaller.
type Database struct {
	superheaderPages   uint32
	regionTrackerRange Range
	fullRegion         Region
	numFullRegions     uint32
	trailingRegion     Region
	hasTrailingRegion  bool
}

// New returns a Database built from already-known geometry.  trailing may
// be nil if the database consists only of full regions.
func New(superheaderPages uint32, regionTrackerLen uint64, numFullRegions uint32, fullRegion Region, trailing *Region) Database {
	db := Database{
		superheaderPages:   superheaderPages,
		regionTrackerRange: Range{Start: DBHeaderSize, End: DBHeaderSize + regionTrackerLen},
		fullRegion:         fullRegion,
		numFullRegions:     numFullRegions,
	}
	if trailing != nil {
		db.trailingRegion = *trailing
		db.hasTrailingRegion = true
	}
	return db
}

// Calculate plans the layout of a database file of at most dbCapacity bytes
// that provides (roughly) desiredUsableBytes of data pages.  It returns an
// error wrapping ErrOutOfSpace if dbCapacity can't hold the superheader and a
// single minimally-sized region.
func Calculate(s Sizer, dbCapacity, desiredUsableBytes uint64, pageCapacity, pageSize uint32) (Database, error) {
	desiredUsableBytes = min(desiredUsableBytes, dbCapacity)
	fullRegion := FullRegion(s, pageCapacity, pageSize)

	// size the region tracker for as many regions as could ever fit, so it
	// never has to move as the file grows
	minHeaderSize := DBHeaderSize + s.TrackerBytes(1, MaxMaxPageOrder+1)
	if dbCapacity < minHeaderSize {
		return Database{}, fmt.Errorf("capacity %d smaller than minimum header %d: %w", dbCapacity, minHeaderSize, ErrOutOfSpace)
	}
	maxRegions := (dbCapacity - minHeaderSize + fullRegion.Len() - 1) / fullRegion.Len()
	if maxRegions > math.MaxUint32 {
		return Database{}, fmt.Errorf("capacity %d would need %d regions, more than supported", dbCapacity, maxRegions)
	}
	dbHeaderBytes := DBHeaderSize + s.TrackerBytes(uint32(maxRegions), MaxMaxPageOrder+1)
	regionTrackerRange := Range{Start: DBHeaderSize, End: dbHeaderBytes}
	// pad to be page aligned
	superheaderBytes := roundUpToMultipleOf(dbHeaderBytes, uint64(pageSize))
	superheaderPages := uint32(divEven(superheaderBytes, uint64(pageSize)))
	if dbCapacity < superheaderBytes+MinUsablePages*uint64(pageSize) {
		return Database{}, fmt.Errorf("capacity %d can't fit superheader (%d bytes) and %d pages: %w",
			dbCapacity, superheaderBytes, MinUsablePages, ErrOutOfSpace)
	}

	remainingSpace := dbCapacity - superheaderBytes
	if desiredUsableBytes <= fullRegion.UsableBytes() || remainingSpace <= fullRegion.Len() {
		// single region layout
		region, ok := CalculateRegion(s, remainingSpace, desiredUsableBytes, pageCapacity, pageSize)
		if !ok {
			return Database{}, fmt.Errorf("single region of %d usable bytes in %d bytes: %w",
				desiredUsableBytes, remainingSpace, ErrOutOfSpace)
		}
		return Database{
			superheaderPages:   superheaderPages,
			regionTrackerRange: regionTrackerRange,
			fullRegion:         fullRegion,
			numFullRegions:     0,
			trailingRegion:     region,
			hasTrailingRegion:  true,
		}, nil
	}

	// multi region layout
	maxFullRegions := remainingSpace / fullRegion.Len()
	desiredFullRegions := desiredUsableBytes / fullRegion.UsableBytes()
	numFullRegions := min(maxFullRegions, desiredFullRegions)
	if numFullRegions == 0 {
		panic("invariant broken: multi region layout with no full regions")
	}
	remainingSpace -= numFullRegions * fullRegion.Len()
	remainingDesired := desiredUsableBytes - numFullRegions*fullRegion.UsableBytes()

	db := Database{
		superheaderPages:   superheaderPages,
		regionTrackerRange: regionTrackerRange,
		fullRegion:         fullRegion,
		numFullRegions:     uint32(numFullRegions),
	}
	if trailing, ok := CalculateRegion(s, remainingSpace, remainingDesired, pageCapacity, pageSize); ok {
		// all regions must have the same header size
		if trailing.headerPages != fullRegion.headerPages {
			panic(fmt.Errorf("invariant broken: trailing region has %d header pages, full regions have %d",
				trailing.headerPages, fullRegion.headerPages))
		}
		db.trailingRegion = trailing
		db.hasTrailingRegion = true
	}

	return db, nil
}

// FullRegionLayout returns the geometry shared by every full region.
func (db Database) FullRegionLayout() Region {
	return db.fullRegion
}

// TrailingRegionLayout returns the geometry of the last region, if the
// database has one that isn't a full region.
func (db Database) TrailingRegionLayout() (Region, bool) {
	return db.trailingRegion, db.hasTrailingRegion
}

func (db Database) NumFullRegions() uint32 {
	return db.numFullRegions
}

func (db Database) NumRegions() uint32 {
	if db.hasTrailingRegion {
		return db.numFullRegions + 1
	}
	return db.numFullRegions
}

// Len returns the total file length the layout occupies.
func (db Database) Len() uint64 {
	last := db.NumRegions() - 1
	return db.RegionBaseAddress(last) + db.RegionLayout(last).Len()
}

// UsableBytes returns the total number of data-page bytes across regions.
func (db Database) UsableBytes() uint64 {
	var trailing uint64
	if db.hasTrailingRegion {
		trailing = db.trailingRegion.UsableBytes()
	}
	return uint64(db.numFullRegions)*db.fullRegion.UsableBytes() + trailing
}

func (db Database) SuperheaderPages() uint32 {
	return db.superheaderPages
}

func (db Database) SuperheaderBytes() uint64 {
	return uint64(db.superheaderPages) * uint64(db.fullRegion.pageSize)
}

// RegionTrackerRange returns the byte range of the region tracker within
// the superheader.
func (db Database) RegionTrackerRange() Range {
	return db.regionTrackerRange
}

// RegionBaseAddress returns the file offset of the start of region.  It
// panics if region is out of range.
func (db Database) RegionBaseAddress(region uint32) uint64 {
	if region >= db.NumRegions() {
		panic(fmt.Errorf("region %d out of range (%d regions)", region, db.NumRegions()))
	}
	return db.SuperheaderBytes() + uint64(region)*db.fullRegion.Len()
}

// RegionLayout returns the geometry of region.  It panics if region is out
// of range.
func (db Database) RegionLayout(region uint32) Region {
	if region >= db.NumRegions() {
		panic(fmt.Errorf("region %d out of range (%d regions)", region, db.NumRegions()))
	}
	if region == db.numFullRegions {
		return db.trailingRegion
	}
	return db.fullRegion
}
