// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pagefile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bpowers/pagefile/internal/filelock"
	"github.com/bpowers/pagefile/internal/layout"
	"github.com/bpowers/pagefile/internal/mmap"
)

// DB is an open pagefile.  Slices returned by its accessors alias mapped
// file memory; DB doesn't synchronize access to them.
type DB struct {
	mu     sync.Mutex // serializes Grow and Close
	f      *os.File
	lock   *filelock.Lock
	mm     *mmap.Mmap
	header fileHeader
	layout atomic.Pointer[layout.Database]
	sizer  layout.Sizer
	logger *slog.Logger
	closed atomic.Bool
}

// Open opens the pagefile at path, creating it if it doesn't exist or is
// empty.  It fails with ErrDatabaseAlreadyOpen if another handle has the
// file open.
func Open(path string, opts ...Option) (*DB, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if err := ValidateGeometry(options.pageSize, options.regionPageCapacity); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("os.OpenFile(%s): %w", path, err)
	}

	lock, err := filelock.New(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("filelock.New: %w", err)
	}

	db := &DB{
		f:      f,
		lock:   lock,
		sizer:  options.sizer,
		logger: options.logger.With("path", path),
	}

	fi, err := f.Stat()
	if err == nil {
		if fi.Size() == 0 {
			err = db.create(options)
		} else {
			err = db.load(options)
		}
	} else {
		err = fmt.Errorf("f.Stat: %w", err)
	}
	if err != nil {
		_ = db.release()
		return nil, err
	}

	return db, nil
}

func (db *DB) create(opts options) error {
	l, err := layout.Calculate(opts.sizer, opts.maxCapacity, opts.initialUsableBytes, opts.regionPageCapacity, opts.pageSize)
	if err != nil {
		return fmt.Errorf("layout.Calculate: %w", err)
	}

	mm, err := mmap.New(db.f, opts.maxCapacity)
	if err != nil {
		return fmt.Errorf("mmap.New: %w", err)
	}
	db.mm = mm

	if err := mm.Resize(l.Len()); err != nil {
		return fmt.Errorf("mm.Resize(%d): %w", l.Len(), err)
	}

	db.header = *newFileHeader(l, opts.maxCapacity, opts.regionPageCapacity)
	if err := db.writeHeader(); err != nil {
		return err
	}
	db.layout.Store(&l)

	db.logger.Debug("created pagefile",
		"len", l.Len(),
		"usable_bytes", l.UsableBytes(),
		"regions", l.NumRegions(),
		"superheader_bytes", l.SuperheaderBytes())
	return nil
}

func (db *DB) load(opts options) error {
	var headerBytes [fileHeaderSize]byte
	if n, err := db.f.ReadAt(headerBytes[:], 0); n < fileHeaderSize {
		if err == io.EOF {
			return fmt.Errorf("file too short for header (%d bytes): %w", n, ErrCorruptHeader)
		}
		return fmt.Errorf("f.ReadAt(header): %w", err)
	}
	if err := db.header.UnmarshalBytes(headerBytes[:]); err != nil {
		return fmt.Errorf("fileHeader.UnmarshalBytes: %w", err)
	}
	h := &db.header

	if h.pageSize != opts.pageSize || h.regionPageCapacity != opts.regionPageCapacity || h.dbCapacity != opts.maxCapacity {
		db.logger.Warn("options differ from file header, using header",
			"page_size", h.pageSize,
			"region_page_capacity", h.regionPageCapacity,
			"max_capacity", h.dbCapacity)
	}

	l := h.Layout()
	mm, err := mmap.New(db.f, h.dbCapacity)
	if err != nil {
		return fmt.Errorf("mmap.New: %w", err)
	}
	db.mm = mm
	if mm.Len() < l.Len() {
		return fmt.Errorf("file is %d bytes, header describes %d: %w", mm.Len(), l.Len(), ErrCorruptHeader)
	}
	db.layout.Store(&l)

	db.logger.Debug("opened pagefile",
		"len", l.Len(),
		"usable_bytes", l.UsableBytes(),
		"regions", l.NumRegions())
	return nil
}

// writeHeader persists db.header and flushes it.
func (db *DB) writeHeader() error {
	buf, err := db.mm.Slice(0, fileHeaderSize)
	if err != nil {
		return fmt.Errorf("mm.Slice(header): %w", err)
	}
	if err := db.header.MarshalTo(buf); err != nil {
		return fmt.Errorf("fileHeader.MarshalTo: %w", err)
	}
	if err := db.mm.Flush(); err != nil {
		return fmt.Errorf("mm.Flush: %w", err)
	}
	return nil
}

// Layout returns the current geometry of the file.
func (db *DB) Layout() layout.Database {
	return *db.layout.Load()
}

// Len returns the current length of the file in bytes.
func (db *DB) Len() uint64 {
	return db.mm.Len()
}

// Grow extends the file so it has at least desiredUsableBytes of data
// pages, or as close to that as the file's capacity allows.  Existing
// regions keep their base address and header, so data already written
// stays where it is.  It returns an error wrapping ErrOutOfSpace if the
// file can't grow at all.
func (db *DB) Grow(desiredUsableBytes uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed.Load() {
		return ErrClosed
	}

	cur := db.Layout()
	if desiredUsableBytes <= cur.UsableBytes() {
		return nil
	}

	h := &db.header
	next, err := layout.Calculate(db.sizer, h.dbCapacity, desiredUsableBytes, h.regionPageCapacity, h.pageSize)
	if err != nil {
		return fmt.Errorf("layout.Calculate: %w", err)
	}
	if next.SuperheaderPages() != cur.SuperheaderPages() || next.FullRegionLayout() != cur.FullRegionLayout() {
		return fmt.Errorf("replanned geometry differs from file header (superheader %d -> %d pages, region header %d -> %d pages)",
			cur.SuperheaderPages(), next.SuperheaderPages(),
			cur.FullRegionLayout().HeaderPages(), next.FullRegionLayout().HeaderPages())
	}
	if next.UsableBytes() <= cur.UsableBytes() {
		return fmt.Errorf("can't grow beyond %d usable bytes: %w", cur.UsableBytes(), ErrOutOfSpace)
	}

	if err := db.mm.Resize(next.Len()); err != nil {
		return fmt.Errorf("mm.Resize(%d): %w", next.Len(), err)
	}

	// on failure the file stays grown; load accepts a file longer than its header describes
	prevHeader := db.header
	db.header = *newFileHeader(next, h.dbCapacity, h.regionPageCapacity)
	if err := db.writeHeader(); err != nil {
		db.header = prevHeader
		return err
	}
	db.layout.Store(&next)

	db.logger.Debug("grew pagefile",
		"len", next.Len(),
		"usable_bytes", next.UsableBytes(),
		"regions", next.NumRegions())
	return nil
}

// Superheader returns the file header and region tracker area.
func (db *DB) Superheader() ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	return db.mm.Slice(0, db.Layout().SuperheaderBytes())
}

// RegionTracker returns the bytes reserved for the region tracker.
func (db *DB) RegionTracker() ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	r := db.Layout().RegionTrackerRange()
	return db.mm.Slice(r.Start, r.Len())
}

// RegionAllocatorHeader returns the bytes reserved for region's allocator.
func (db *DB) RegionAllocatorHeader(region uint32) ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	l := db.Layout()
	if region >= l.NumRegions() {
		return nil, fmt.Errorf("region %d of %d: %w", region, l.NumRegions(), ErrOutOfRange)
	}
	r := l.RegionLayout(region)
	return db.mm.Slice(l.RegionBaseAddress(region), r.DataSection().Start)
}

// Page returns the page-sized slice for data page page of region.
func (db *DB) Page(region, page uint32) ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	l := db.Layout()
	if region >= l.NumRegions() {
		return nil, fmt.Errorf("region %d of %d: %w", region, l.NumRegions(), ErrOutOfRange)
	}
	r := l.RegionLayout(region)
	if page >= r.NumPages() {
		return nil, fmt.Errorf("page %d of %d in region %d: %w", page, r.NumPages(), region, ErrOutOfRange)
	}
	pageSize := uint64(r.PageSize())
	off := l.RegionBaseAddress(region) + r.DataSection().Start + uint64(page)*pageSize
	return db.mm.Slice(off, pageSize)
}

// Flush blocks until all writes to the file are durable.
func (db *DB) Flush() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return db.mm.Flush()
}

// EventualFlush makes writes before it durable before writes after it,
// without waiting for them to reach stable storage where the platform
// allows.
func (db *DB) EventualFlush() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return db.mm.EventualFlush()
}

// Close unmaps the file and releases its lock.  Slices returned by the
// DB must not be used afterwards.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed.Swap(true) {
		return nil
	}
	return db.release()
}

func (db *DB) release() error {
	var errs []error
	if db.mm != nil {
		if err := db.mm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mm.Close: %w", err))
		}
	}
	if err := db.lock.Close(); err != nil {
		errs = append(errs, fmt.Errorf("lock.Close: %w", err))
	}
	if err := db.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("f.Close: %w", err))
	}
	return errors.Join(errs...)
}
