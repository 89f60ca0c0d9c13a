// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command pagefile-layout prints the geometry of a pagefile, either planned
// from capacity parameters or read from an existing file.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"github.com/bpowers/pagefile"
	"github.com/bpowers/pagefile/internal/alloc"
	"github.com/bpowers/pagefile/internal/layout"
)

var (
	capacityFlag    = flag.Uint64("capacity", pagefile.DefaultMaxCapacity, "maximum database file size in bytes")
	usableFlag      = flag.Uint64("usable", pagefile.DefaultInitialUsableBytes, "desired usable bytes")
	pageSizeFlag    = flag.Uint("page-size", pagefile.DefaultPageSize, "page size in bytes")
	regionPagesFlag = flag.Uint("region-pages", pagefile.DefaultRegionPageCapacity, "data pages in a full region")
	fileFlag        = flag.String("file", "", "inspect an existing pagefile instead of planning one")
	jsonFlag        = flag.Bool("json", false, "print JSON instead of text")
	verboseFlag     = flag.Bool("v", false, "log debug output to stderr")
)

type regionInfo struct {
	Index       uint32 `json:"index"`
	BaseAddress uint64 `json:"base_address"`
	HeaderPages uint32 `json:"header_pages"`
	NumPages    uint32 `json:"num_pages"`
	Len         uint64 `json:"len"`
}

type layoutInfo struct {
	Len                uint64       `json:"len"`
	UsableBytes        uint64       `json:"usable_bytes"`
	SuperheaderBytes   uint64       `json:"superheader_bytes"`
	RegionTrackerStart uint64       `json:"region_tracker_start"`
	RegionTrackerEnd   uint64       `json:"region_tracker_end"`
	NumFullRegions     uint32       `json:"num_full_regions"`
	Regions            []regionInfo `json:"regions"`
}

func describe(l layout.Database) layoutInfo {
	tracker := l.RegionTrackerRange()
	info := layoutInfo{
		Len:                l.Len(),
		UsableBytes:        l.UsableBytes(),
		SuperheaderBytes:   l.SuperheaderBytes(),
		RegionTrackerStart: tracker.Start,
		RegionTrackerEnd:   tracker.End,
		NumFullRegions:     l.NumFullRegions(),
	}
	for i := uint32(0); i < l.NumRegions(); i++ {
		r := l.RegionLayout(i)
		info.Regions = append(info.Regions, regionInfo{
			Index:       i,
			BaseAddress: l.RegionBaseAddress(i),
			HeaderPages: r.HeaderPages(),
			NumPages:    r.NumPages(),
			Len:         r.Len(),
		})
	}
	return info
}

func printText(w io.Writer, info layoutInfo) {
	fmt.Fprintf(w, "len:            %d\n", info.Len)
	fmt.Fprintf(w, "usable bytes:   %d\n", info.UsableBytes)
	fmt.Fprintf(w, "superheader:    %d bytes\n", info.SuperheaderBytes)
	fmt.Fprintf(w, "region tracker: [%d, %d)\n", info.RegionTrackerStart, info.RegionTrackerEnd)
	fmt.Fprintf(w, "full regions:   %d\n", info.NumFullRegions)
	for _, r := range info.Regions {
		fmt.Fprintf(w, "  region %d @ %d: %d header pages, %d data pages, %d bytes\n",
			r.Index, r.BaseAddress, r.HeaderPages, r.NumPages, r.Len)
	}
}

// geometryFlags validates -page-size and -region-pages with the same rules
// pagefile.Open applies.
func geometryFlags() (pageSize, regionPages uint32, err error) {
	if *pageSizeFlag > math.MaxUint32 {
		return 0, 0, fmt.Errorf("-page-size %d overflows uint32", *pageSizeFlag)
	}
	if *regionPagesFlag > math.MaxUint32 {
		return 0, 0, fmt.Errorf("-region-pages %d overflows uint32", *regionPagesFlag)
	}
	pageSize, regionPages = uint32(*pageSizeFlag), uint32(*regionPagesFlag)
	if err := pagefile.ValidateGeometry(pageSize, regionPages); err != nil {
		return 0, 0, err
	}
	return pageSize, regionPages, nil
}

func run(logger *slog.Logger) (layout.Database, error) {
	if *fileFlag != "" {
		// pagefile.Open creates missing or empty files; only inspect real ones
		fi, err := os.Stat(*fileFlag)
		if err != nil {
			return layout.Database{}, fmt.Errorf("os.Stat: %w", err)
		}
		if fi.Size() == 0 {
			return layout.Database{}, fmt.Errorf("%s is empty, not a pagefile", *fileFlag)
		}
		db, err := pagefile.Open(*fileFlag, pagefile.WithLogger(logger))
		if err != nil {
			return layout.Database{}, fmt.Errorf("pagefile.Open(%s): %w", *fileFlag, err)
		}
		defer func() {
			_ = db.Close()
		}()
		return db.Layout(), nil
	}

	pageSize, regionPages, err := geometryFlags()
	if err != nil {
		return layout.Database{}, err
	}
	l, err := layout.Calculate(alloc.Sizer{}, *capacityFlag, *usableFlag, regionPages, pageSize)
	if err != nil {
		return layout.Database{}, fmt.Errorf("layout.Calculate: %w", err)
	}
	logger.Debug("planned layout", "capacity", *capacityFlag, "usable", *usableFlag)
	return l, nil
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	l, err := run(logger)
	if err != nil {
		logger.Error("pagefile-layout failed", "err", err)
		os.Exit(1)
	}

	info := describe(l)
	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			logger.Error("json.Encode", "err", err)
			os.Exit(1)
		}
		return
	}
	printText(os.Stdout, info)
}
