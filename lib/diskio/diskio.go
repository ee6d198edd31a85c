// Copyright (C) 2022  Luke Shumaker <lukeshu@lukeshu.com>
// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package diskio provides the address-parameterized random-access-file
// abstraction that the volume set and the chain store build on.
package diskio

// File is anything that supports positioned reads keyed by an
// address type A (a volume-relative offset, or a global offset
// across a volume set). It intentionally excludes Close/Write: this
// is a read-only reader.
type File[A ~int64] interface {
	ReadAt(p []byte, off A) (n int, err error)
	Size() (A, error)
}
