// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || windows

package filelock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestFile(t *testing.T, path string) *os.File {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = f.Close()
	})
	return f
}

func TestLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.db")
	// two independent opens get two open file descriptions, so the second
	// lock contends with the first even within one process
	f1 := openTestFile(t, path)
	f2 := openTestFile(t, path)

	l1, err := New(f1)
	require.NoError(t, err)

	_, err = New(f2)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l1.Close())
	// multiple closes should be fine
	require.NoError(t, l1.Close())

	l2, err := New(f2)
	require.NoError(t, err)
	assert.NoError(t, l2.Close())
}

func TestLock_ReleasedOnFileClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.db")
	f1, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	require.NoError(t, err)

	_, err = New(f1)
	require.NoError(t, err)
	require.NoError(t, f1.Close())

	f2 := openTestFile(t, path)
	l2, err := New(f2)
	require.NoError(t, err)
	assert.NoError(t, l2.Close())
}
