// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd || windows)

package filelock

import (
	"errors"
	"fmt"
	"os"
)

func lock(f *os.File) error {
	return fmt.Errorf("lock(%s): %w", f.Name(), errors.ErrUnsupported)
}

func unlock(*os.File) error {
	return nil
}
