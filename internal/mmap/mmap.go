// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mmap maps a database file into memory with a fixed reserved
// capacity, so that the file can grow without the mapping moving.
//
// The logical length of the file (what is durable and what may be
// accessed) is tracked separately from the reserved capacity.  Bytes
// between the logical length and the capacity are mapped but must never be
// touched: on most platforms doing so raises SIGBUS.
package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

var (
	ErrOutOfRange = errors.New("mmap: access beyond logical length")
	ErrClosed     = errors.New("mmap: mapping closed")
)

// mapping is the platform-specific half of an Mmap.  Implementations own
// the reserved address range; resize must keep it at the same address.
type mapping interface {
	// bytes returns the whole reserved range, which is only safe to
	// access up to the owner's logical length.
	bytes() []byte
	resize(newLen uint64, owner *Mmap) error
	flush(owner *Mmap) error
	eventualFlush(owner *Mmap) error
	unmap() error
}

// Mmap owns a single shared, writable mapping of a file.  It is safe for
// concurrent use by multiple goroutines, but provides no synchronization
// for the mapped bytes themselves.
type Mmap struct {
	f        *os.File
	capacity uint64
	len      atomic.Uint64
	closed   atomic.Bool
	m        mapping
}

// New maps f with maxCapacity bytes of reserved address space.  The
// logical length starts out as the file's current size.
func New(f *os.File, maxCapacity uint64) (*Mmap, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := uint64(fi.Size())
	if size > maxCapacity {
		return nil, fmt.Errorf("file %s is %d bytes, larger than max capacity %d", f.Name(), size, maxCapacity)
	}

	m, err := createMapping(f, maxCapacity)
	if err != nil {
		return nil, err
	}

	mm := &Mmap{
		f:        f,
		capacity: maxCapacity,
		m:        m,
	}
	mm.len.Store(size)
	return mm, nil
}

// Len returns the current logical length of the file.
func (mm *Mmap) Len() uint64 {
	return mm.len.Load()
}

// Capacity returns the reserved address space, the largest length the file
// can be resized to.
func (mm *Mmap) Capacity() uint64 {
	return mm.capacity
}

// Resize sets the file's length to newLen and re-establishes the mapping at
// the same address.
//
// When shrinking, the caller must ensure that no goroutine holds or will
// use a slice (from Slice) covering bytes in [newLen, Len()).  Nothing
// checks this.  Grown bytes read as zero until written.
func (mm *Mmap) Resize(newLen uint64) error {
	if mm.closed.Load() {
		return ErrClosed
	}
	if newLen > mm.capacity {
		return fmt.Errorf("resize to %d exceeds reserved capacity %d", newLen, mm.capacity)
	}
	if err := mm.m.resize(newLen, mm); err != nil {
		return err
	}
	mm.len.Store(newLen)
	return nil
}

// Flush blocks until every dirty page in the logical length is on stable
// storage.
func (mm *Mmap) Flush() error {
	if mm.closed.Load() {
		return ErrClosed
	}
	return mm.m.flush(mm)
}

// EventualFlush is a write barrier: writes made before it become durable
// before writes made after it, eventually.  Where the platform has no
// cheaper primitive it is the same as Flush.
func (mm *Mmap) EventualFlush() error {
	if mm.closed.Load() {
		return ErrClosed
	}
	return mm.m.eventualFlush(mm)
}

// Slice returns n bytes of mapped memory starting at off.  The slice aliases
// the file: writes to it are writes to the file.  It is invalidated by
// Close and by a Resize that shrinks below off+n.
func (mm *Mmap) Slice(off, n uint64) ([]byte, error) {
	if mm.closed.Load() {
		return nil, ErrClosed
	}
	end := off + n
	if end < off || end > mm.Len() {
		return nil, fmt.Errorf("[%d, %d) with length %d: %w", off, end, mm.Len(), ErrOutOfRange)
	}
	return mm.m.bytes()[off:end:end], nil
}

// ReadAt implements io.ReaderAt over the logical length.
func (mm *Mmap) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d: %w", off, ErrOutOfRange)
	}
	length := mm.Len()
	if uint64(off) >= length {
		return 0, io.EOF
	}
	n := min(uint64(len(p)), length-uint64(off))
	b, err := mm.Slice(uint64(off), n)
	if err != nil {
		return 0, err
	}
	copy(p, b)
	if n < uint64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteAt implements io.WriterAt.  Unlike a file, it can't extend the
// logical length: call Resize first.
func (mm *Mmap) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d: %w", off, ErrOutOfRange)
	}
	b, err := mm.Slice(uint64(off), uint64(len(p)))
	if err != nil {
		return 0, err
	}
	return copy(b, p), nil
}

// Close unmaps the reserved range.  It doesn't close the file.  Any slice
// previously returned by Slice must no longer be used.
func (mm *Mmap) Close() error {
	if mm.closed.Swap(true) {
		// nothing to do - already cleaned up
		return nil
	}
	return mm.m.unmap()
}

var (
	_ io.ReaderAt = &Mmap{}
	_ io.WriterAt = &Mmap{}
)
