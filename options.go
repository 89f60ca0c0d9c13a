// Copyright 2024 The pagefile Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pagefile

import (
	"io"
	"log/slog"

	"github.com/bpowers/pagefile/internal/alloc"
	"github.com/bpowers/pagefile/internal/layout"
)

const (
	DefaultPageSize           = 4096
	DefaultRegionPageCapacity = 64 * 1024
	DefaultMaxCapacity        = 16 << 30
	DefaultInitialUsableBytes = 1 << 20
)

// Option configures Open.  Page size, region page capacity and max capacity
// only apply when creating a file; an existing file's header wins.
type Option func(*options)

type options struct {
	logger             *slog.Logger
	pageSize           uint32
	regionPageCapacity uint32
	maxCapacity        uint64
	initialUsableBytes uint64
	sizer              layout.Sizer
}

func defaultOptions() options {
	return options{
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		pageSize:           DefaultPageSize,
		regionPageCapacity: DefaultRegionPageCapacity,
		maxCapacity:        DefaultMaxCapacity,
		initialUsableBytes: DefaultInitialUsableBytes,
		sizer:              alloc.Sizer{},
	}
}

// WithLogger sets an optional logger for the DB to report geometry changes to.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithPageSize sets the page size, which must be a power of two of at least 512.
func WithPageSize(pageSize uint32) Option {
	return func(opts *options) {
		opts.pageSize = pageSize
	}
}

// WithRegionPageCapacity sets the number of data pages in a full region.
func WithRegionPageCapacity(pages uint32) Option {
	return func(opts *options) {
		opts.regionPageCapacity = pages
	}
}

// WithMaxCapacity sets the largest size the file may ever grow to.  That
// much address space is reserved up front.
func WithMaxCapacity(capacity uint64) Option {
	return func(opts *options) {
		opts.maxCapacity = capacity
	}
}

// WithInitialUsableBytes sets how many bytes of data pages a new file starts with.
func WithInitialUsableBytes(n uint64) Option {
	return func(opts *options) {
		opts.initialUsableBytes = n
	}
}

// WithSizer overrides how allocator and region tracker sizes are computed.
func WithSizer(s layout.Sizer) Option {
	return func(opts *options) {
		opts.sizer = s
	}
}
