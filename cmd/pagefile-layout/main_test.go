// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/pagefile"
	"github.com/bpowers/pagefile/internal/alloc"
	"github.com/bpowers/pagefile/internal/layout"
)

func TestDescribe(t *testing.T) {
	l, err := layout.Calculate(alloc.Sizer{}, 64<<20, 3<<20+100*4096, 256, 4096)
	require.NoError(t, err)

	info := describe(l)
	assert.Equal(t, l.Len(), info.Len)
	assert.Equal(t, uint32(3), info.NumFullRegions)
	require.Len(t, info.Regions, 4)
	assert.Equal(t, uint32(100), info.Regions[3].NumPages)
	for i, r := range info.Regions {
		assert.Equal(t, l.RegionBaseAddress(uint32(i)), r.BaseAddress)
	}

	var buf bytes.Buffer
	printText(&buf, info)
	assert.Contains(t, buf.String(), "full regions:   3")

	out, err := json.Marshal(info)
	require.NoError(t, err)
	var decoded layoutInfo
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, info, decoded)
}

// setFlags overrides the command-line flags for one test.
func setFlags(t *testing.T, file string, pageSize, regionPages uint) {
	oldFile, oldPageSize, oldRegionPages := *fileFlag, *pageSizeFlag, *regionPagesFlag
	t.Cleanup(func() {
		*fileFlag, *pageSizeFlag, *regionPagesFlag = oldFile, oldPageSize, oldRegionPages
	})
	*fileFlag, *pageSizeFlag, *regionPagesFlag = file, pageSize, regionPages
}

func TestRun_Plan(t *testing.T) {
	setFlags(t, "", pagefile.DefaultPageSize, pagefile.DefaultRegionPageCapacity)
	l, err := run(discardLogger())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, l.UsableBytes(), uint64(pagefile.DefaultInitialUsableBytes))
}

func TestRun_BadGeometry(t *testing.T) {
	tooBig := uint64(math.MaxUint32) + 4097
	for _, tc := range []struct {
		pageSize, regionPages uint
	}{
		{0, pagefile.DefaultRegionPageCapacity},
		{1000, pagefile.DefaultRegionPageCapacity},
		{uint(tooBig), pagefile.DefaultRegionPageCapacity},
		{4096, 0},
		{4096, uint(tooBig)},
	} {
		setFlags(t, "", tc.pageSize, tc.regionPages)
		var err error
		require.NotPanics(t, func() {
			_, err = run(discardLogger())
		}, "page size %d, region pages %d", tc.pageSize, tc.regionPages)
		assert.Error(t, err, "page size %d, region pages %d", tc.pageSize, tc.regionPages)
	}
}

func TestRun_InspectMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	setFlags(t, path, pagefile.DefaultPageSize, pagefile.DefaultRegionPageCapacity)

	_, err := run(discardLogger())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRun_InspectEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	setFlags(t, path, pagefile.DefaultPageSize, pagefile.DefaultRegionPageCapacity)

	_, err := run(discardLogger())
	assert.Error(t, err)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fi.Size())
}

func TestRun_InspectExistingFile(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("mapping not supported on " + runtime.GOOS)
	}
	path := filepath.Join(t.TempDir(), "existing.db")
	db, err := pagefile.Open(path,
		pagefile.WithRegionPageCapacity(256),
		pagefile.WithMaxCapacity(64<<20),
		pagefile.WithInitialUsableBytes(2<<20))
	require.NoError(t, err)
	want := db.Layout()
	require.NoError(t, db.Close())

	setFlags(t, path, pagefile.DefaultPageSize, pagefile.DefaultRegionPageCapacity)
	l, err := run(discardLogger())
	require.NoError(t, err)
	assert.Equal(t, want, l)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
