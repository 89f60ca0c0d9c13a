// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/pagefile/internal/layout"
)

func TestMaxOrder(t *testing.T) {
	assert.Equal(t, uint8(0), MaxOrder(0))
	assert.Equal(t, uint8(0), MaxOrder(1))
	assert.Equal(t, uint8(1), MaxOrder(3))
	assert.Equal(t, uint8(9), MaxOrder(512))
	assert.Equal(t, uint8(9), MaxOrder(1023))
	assert.Equal(t, uint8(layout.MaxMaxPageOrder), MaxOrder(1<<30))
}

func TestAllocatorBytes(t *testing.T) {
	var s Sizer
	// 8 byte prefix + 1 order offset, aligned to 16, then two 1-word bitmaps
	assert.Equal(t, uint64(16+16), s.AllocatorBytes(1))

	// 512 pages: orders 0..9 need 8,4,2,1,1,1,1,1,1,1 words per bitmap
	prefix := uint64((8 + 10*4 + 7) &^ 7)
	assert.Equal(t, prefix+2*8*(8+4+2+7), s.AllocatorBytes(512))

	// more capacity never needs less header
	prev := uint64(0)
	for capacity := uint32(1); capacity < 1<<16; capacity = capacity*3/2 + 1 {
		n := s.AllocatorBytes(capacity)
		require.GreaterOrEqual(t, n, prev, "capacity %d", capacity)
		prev = n
	}
}

func TestTrackerBytes(t *testing.T) {
	var s Sizer
	assert.Equal(t, uint64(8), s.TrackerBytes(100, 0))
	assert.Equal(t, uint64(8+21*(4+8)), s.TrackerBytes(1, layout.MaxMaxPageOrder+1))
	assert.Equal(t, uint64(8+21*(4+16)), s.TrackerBytes(65, layout.MaxMaxPageOrder+1))
}

func TestFullRegionWithDefaultSizer(t *testing.T) {
	r := layout.FullRegion(Sizer{}, 512, 4096)
	assert.Equal(t, uint32(512), r.NumPages())
	assert.Equal(t, uint32(4096), r.PageSize())
	assert.Equal(t, uint32(1), r.HeaderPages())

	db, err := layout.Calculate(Sizer{}, 1<<30, 1<<20, 1<<16, 4096)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), db.NumRegions())
	assert.LessOrEqual(t, db.Len(), uint64(1<<30))
}
