// Copyright 2021 The bit Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bitset sizes the on-disk bitmaps kept in region and tracker
// headers.  Bits are grouped into 64-bit words.
package bitset

// RequiredBytes returns the number of bytes needed to store length bits,
// rounded up to a whole number of 64-bit words.
func RequiredBytes(length uint64) uint64 {
	return 8 * ((length + 63) / 64)
}
