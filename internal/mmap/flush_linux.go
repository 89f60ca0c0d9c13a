// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mmap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func (m *unixMapping) flush(owner *Mmap) error {
	if syncDisabled {
		return nil
	}
	n := owner.Len()
	if n == 0 {
		return nil
	}
	if err := unix.Msync(m.data[:n], unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync(%d): %w", n, err)
	}
	return nil
}

// linux has no ordering-only barrier for mapped writes.
func (m *unixMapping) eventualFlush(owner *Mmap) error {
	return m.flush(owner)
}
