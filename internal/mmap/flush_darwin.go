// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mmap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// msync doesn't force the drive to flush its cache on darwin; F_FULLFSYNC does.
func (m *unixMapping) flush(owner *Mmap) error {
	if syncDisabled {
		return nil
	}
	if _, err := unix.FcntlInt(owner.f.Fd(), unix.F_FULLFSYNC, 0); err != nil {
		return fmt.Errorf("fcntl(F_FULLFSYNC): %w", err)
	}
	return nil
}

// TODO: F_BARRIERFSYNC orders write() calls; confirm it orders stores
// through a shared mapping too, or switch the hot path to pwrite.
func (m *unixMapping) eventualFlush(owner *Mmap) error {
	if syncDisabled {
		return nil
	}
	if _, err := unix.FcntlInt(owner.f.Fd(), unix.F_BARRIERFSYNC, 0); err != nil {
		return fmt.Errorf("fcntl(F_BARRIERFSYNC): %w", err)
	}
	return nil
}
