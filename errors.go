// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pagefile

import (
	"errors"

	"github.com/bpowers/pagefile/internal/filelock"
	"github.com/bpowers/pagefile/internal/layout"
)

// Sentinel errors for programmatic handling with errors.Is.  Errors from the
// operating system are wrapped and returned as-is.
var (
	// ErrOutOfSpace means the configured capacity can't hold the requested
	// layout.  Retrying with a larger capacity may succeed.
	ErrOutOfSpace = layout.ErrOutOfSpace
	// ErrDatabaseAlreadyOpen means another handle holds the file's lock.
	ErrDatabaseAlreadyOpen = filelock.ErrLocked

	ErrCorruptHeader = errors.New("pagefile: corrupt file header")
	ErrClosed        = errors.New("pagefile: database is closed")
	ErrOutOfRange    = errors.New("pagefile: region or page out of range")
)
