// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build windows

package filelock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// lock bytes 0 to max, i.e. the whole file however large it grows
const (
	lockLow  = 0xFFFFFFFF
	lockHigh = 0xFFFFFFFF
)

func lock(f *os.File) error {
	var overlapped windows.Overlapped
	err := windows.LockFileEx(windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, lockLow, lockHigh, &overlapped)
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return fmt.Errorf("LockFileEx(%s): %w", f.Name(), ErrLocked)
	} else if err != nil {
		return fmt.Errorf("LockFileEx(%s): %w", f.Name(), err)
	}
	return nil
}

func unlock(f *os.File) error {
	var overlapped windows.Overlapped
	if err := windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockLow, lockHigh, &overlapped); err != nil {
		return fmt.Errorf("UnlockFileEx(%s): %w", f.Name(), err)
	}
	return nil
}
