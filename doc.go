// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package pagefile is the raw storage layer of an embedded database: it
// plans how a single file is split into a superheader and regions of
// pages, maps the file into memory, grows it, and flushes it to disk.
//
// A pagefile looks like:
//
//	┌───────────────────┐
//	│ file header       │ fixed 512 bytes, see below
//	├───────────────────┤
//	│ region tracker    │ sized for the most regions the capacity allows
//	├───────────────────┤
//	│ padding           │ to a page boundary
//	├───────────────────┤
//	│ region 0          │ allocator header pages, then data pages
//	├───────────────────┤
//	│ ...               │ identical full regions
//	├───────────────────┤
//	│ trailing region   │ same header size, possibly fewer data pages
//	└───────────────────┘
//
// The file header is little-endian:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic             | format version    |
//	+----+----+----+----+----+----+----+----+
//	| page size         | region page cap   |
//	+----+----+----+----+----+----+----+----+
//	| superheader pages | region hdr pages  |
//	+----+----+----+----+----+----+----+----+
//	| full regions      | trailing pages    |
//	+----+----+----+----+----+----+----+----+
//	| database capacity                     |
//	+----+----+----+----+----+----+----+----+
//	| region tracker length                 |
//	+----+----+----+----+----+----+----+----+
//	| checksum (farm64 of the above)        |
//	+----+----+----+----+----+----+----+----+
//
// A trailing-pages value of 0 means the file has no trailing region.  Only
// one DB may have a given file open at a time; a second Open fails with
// ErrDatabaseAlreadyOpen.
package pagefile
