// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package filelock takes a non-blocking, exclusive, advisory lock on a
// whole file.  The lock is shared by every goroutine in the process: it
// only excludes other processes, or other opens of the same file.
package filelock

import (
	"errors"
	"os"
	"sync"
)

// ErrLocked is returned when another open file description already holds
// the lock.
var ErrLocked = errors.New("filelock: file is locked by another handle")

// Lock is held from New until Close.
type Lock struct {
	mu sync.Mutex
	f  *os.File
}

// New acquires an exclusive lock on f without blocking.  If the lock is
// held elsewhere it returns an error wrapping ErrLocked.
func New(f *os.File) (*Lock, error) {
	if err := lock(f); err != nil {
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Close releases the lock.  It does not close the file, and is a no-op
// after the first call.
func (l *Lock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := unlock(l.f)
	l.f = nil
	return err
}
