// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build linux || darwin

package mmap

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCapacity = 1024 * 1024

func newTestMmap(t *testing.T) (*Mmap, *os.File) {
	f, err := os.CreateTemp(t.TempDir(), "pagefile-mmap.*.db")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = f.Close()
	})

	mm, err := New(f, testCapacity)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mm.Close()
	})
	return mm, f
}

func TestMmap_GrowIsZeroFilled(t *testing.T) {
	mm, _ := newTestMmap(t)
	assert.Equal(t, uint64(0), mm.Len())
	assert.Equal(t, uint64(testCapacity), mm.Capacity())

	require.NoError(t, mm.Resize(8192))
	assert.Equal(t, uint64(8192), mm.Len())

	b, err := mm.Slice(0, 8192)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8192), b)

	for i := range b {
		b[i] = 0xAB
	}

	require.NoError(t, mm.Resize(3*8192))
	grown, err := mm.Slice(8192, 2*8192)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 2*8192), grown)

	// the base address is stable, so earlier slices still see the data
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 8192), b)
}

func TestMmap_ShrinkThenGrowIsZeroFilled(t *testing.T) {
	mm, _ := newTestMmap(t)

	require.NoError(t, mm.Resize(16384))
	_, err := mm.WriteAt(bytes.Repeat([]byte{1}, 16384), 0)
	require.NoError(t, err)

	require.NoError(t, mm.Resize(4096))
	_, err = mm.Slice(4096, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, mm.Resize(16384))
	buf := make([]byte, 16384)
	n, err := mm.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 16384, n)
	assert.Equal(t, bytes.Repeat([]byte{1}, 4096), buf[:4096])
	assert.Equal(t, make([]byte, 16384-4096), buf[4096:])
}

func TestMmap_FlushIsIdempotent(t *testing.T) {
	mm, f := newTestMmap(t)

	require.NoError(t, mm.Resize(4096))
	_, err := mm.WriteAt([]byte("pagefile"), 100)
	require.NoError(t, err)

	require.NoError(t, mm.Flush())
	require.NoError(t, mm.Flush())
	require.NoError(t, mm.EventualFlush())
	assert.Equal(t, uint64(4096), mm.Len())

	contents, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.Len(t, contents, 4096)
	assert.Equal(t, "pagefile", string(contents[100:108]))
}

func TestMmap_FlushEmpty(t *testing.T) {
	mm, _ := newTestMmap(t)
	require.NoError(t, mm.Flush())
	require.NoError(t, mm.EventualFlush())
}

func TestMmap_Bounds(t *testing.T) {
	mm, _ := newTestMmap(t)
	require.NoError(t, mm.Resize(4096))

	_, err := mm.Slice(4000, 97)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = mm.Slice(^uint64(0), 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = mm.WriteAt([]byte("x"), 4096)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = mm.WriteAt([]byte("x"), -1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	buf := make([]byte, 100)
	n, err := mm.ReadAt(buf, 4050)
	assert.Equal(t, 46, n)
	assert.ErrorIs(t, err, io.EOF)
	_, err = mm.ReadAt(buf, 4096)
	assert.ErrorIs(t, err, io.EOF)

	assert.Error(t, mm.Resize(testCapacity+1))
	assert.Equal(t, uint64(4096), mm.Len())
}

func TestMmap_Close(t *testing.T) {
	mm, _ := newTestMmap(t)
	require.NoError(t, mm.Resize(4096))

	require.NoError(t, mm.Close())
	// multiple closes should be fine
	require.NoError(t, mm.Close())

	_, err := mm.Slice(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, mm.Flush(), ErrClosed)
	assert.ErrorIs(t, mm.EventualFlush(), ErrClosed)
	assert.ErrorIs(t, mm.Resize(8192), ErrClosed)
}

func TestNew_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.db")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{7}, 8192), 0644))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	_, err = New(f, 4096)
	assert.Error(t, err)

	mm, err := New(f, testCapacity)
	require.NoError(t, err)
	defer func() {
		_ = mm.Close()
	}()
	assert.Equal(t, uint64(8192), mm.Len())
	b, err := mm.Slice(8191, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(7), b[0])
}

func TestNew_Leak(t *testing.T) {
	iterations := 10000
	if runtime.GOOS == "darwin" {
		iterations = 100
	}
	dir := t.TempDir()
	for i := 0; i < iterations; i++ {
		f, err := os.CreateTemp(dir, "leak.*.db")
		require.NoError(t, err)
		mm, err := New(f, testCapacity)
		require.NoError(t, err)
		require.NoError(t, mm.Close())
		require.NoError(t, f.Close())
		require.NoError(t, os.Remove(f.Name()))
	}
}
