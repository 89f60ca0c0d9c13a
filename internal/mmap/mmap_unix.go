// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build linux || darwin

package mmap

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	prot = unix.PROT_READ | unix.PROT_WRITE
)

type unixMapping struct {
	addr     unsafe.Pointer
	capacity uintptr
	data     []byte
}

func createMapping(f *os.File, maxCapacity uint64) (mapping, error) {
	if maxCapacity == 0 {
		return nil, fmt.Errorf("mmap: zero capacity")
	}
	addr, err := unix.MmapPtr(int(f.Fd()), 0, nil, uintptr(maxCapacity), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap(%s, %d): %w", f.Name(), maxCapacity, err)
	}
	return &unixMapping{
		addr:     addr,
		capacity: uintptr(maxCapacity),
		data:     unsafe.Slice((*byte)(addr), int(maxCapacity)),
	}, nil
}

func (m *unixMapping) bytes() []byte {
	return m.data
}

func (m *unixMapping) resize(newLen uint64, owner *Mmap) error {
	if err := owner.f.Truncate(int64(newLen)); err != nil {
		return fmt.Errorf("f.Truncate(%d): %w", newLen, err)
	}

	addr, err := unix.MmapPtr(int(owner.f.Fd()), 0, m.addr, m.capacity, prot, unix.MAP_SHARED|unix.MAP_FIXED)
	if err != nil {
		return fmt.Errorf("mmap(MAP_FIXED, %d): %w", m.capacity, err)
	}
	if addr != m.addr {
		panic("invariant broken: MAP_FIXED remap moved the mapping")
	}
	return nil
}

func (m *unixMapping) unmap() error {
	if err := unix.MunmapPtr(m.addr, m.capacity); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	m.data = nil
	return nil
}
