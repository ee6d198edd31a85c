// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hammer2err holds the small, shared failure taxonomy every
// core operation returns into (spec.md §4.11). Callers use
// errors.Is against these sentinels; concrete errors returned by the
// core always wrap one of them with %w.
package hammer2err

import "errors"

var (
	// EINVAL: malformed input, corrupt on-disk structure, or an
	// overlap invariant violation.
	EINVAL = errors.New("hammer2: invalid argument")
	// ENOENT: target absent.
	ENOENT = errors.New("hammer2: no such file or directory")
	// ENODEV: offset outside any known volume.
	ENODEV = errors.New("hammer2: no such device")
	// EIO: I/O or checksum failure in a required leaf.
	EIO = errors.New("hammer2: input/output error")
	// EISDIR: type mismatch, operation requires a non-directory.
	EISDIR = errors.New("hammer2: is a directory")
	// ENOTDIR: type mismatch, operation requires a directory.
	ENOTDIR = errors.New("hammer2: not a directory")
	// ENOSPC: CID allocator exhausted.
	ENOSPC = errors.New("hammer2: no space left on device")
	// EOPNOTSUPP: feature not built.
	EOPNOTSUPP = errors.New("hammer2: operation not supported")
	// E2BIG: lookup iteration cap reached.
	E2BIG = errors.New("hammer2: argument list too long")
)
