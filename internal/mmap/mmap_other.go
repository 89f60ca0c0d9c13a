// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !linux && !darwin

package mmap

import (
	"errors"
	"fmt"
	"os"
)

func createMapping(f *os.File, maxCapacity uint64) (mapping, error) {
	return nil, fmt.Errorf("mmap(%s): reserved-capacity mappings: %w", f.Name(), errors.ErrUnsupported)
}
