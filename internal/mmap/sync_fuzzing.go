// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build fuzzing

package mmap

// Fuzzing doesn't exercise crash consistency, and syncing on every commit
// makes it far too slow.
const syncDisabled = true
