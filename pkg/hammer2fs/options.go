// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hammer2fs is the mount/unmount bootstrap of spec.md §4.10:
// it wires the volume set, chain store, and inode facade together
// into one handle, and owns the mount option set of spec.md §6.2.
package hammer2fs

import (
	"fmt"
	"strings"

	"github.com/kusumi/hammer2/pkg/hammer2err"
)

// Options is the mount option set recognised by spec.md §6.2, plus
// the original reader's option.rs "noauto" passthrough (SPEC_FULL.md's
// supplemented-features list): accepted and stored, but mount-table
// bookkeeping only, since it governs auto-mount-on-boot behavior that
// an external mount table owns, not this reader.
type Options struct {
	// NoDataCache disables the udata cache: every read refaults its
	// leaf instead of reusing a previously decompressed copy.
	NoDataCache bool
	// CidAlloc selects the CID allocator policy: "linear" (default)
	// or "bitmap".
	CidAlloc string
	// Debug raises the logging level to debug.
	Debug bool
	// NoAuto is accepted and round-tripped but has no reader effect.
	NoAuto bool
}

// DefaultOptions returns the zero-value-safe option set: linear CID
// allocation, datacache enabled, ordinary logging.
func DefaultOptions() Options {
	return Options{CidAlloc: "linear"}
}

// ParseOptions parses a comma-separated mount option string (the
// conventional -o option,option=value,... form) into an Options,
// starting from DefaultOptions.
func ParseOptions(raw string) (Options, error) {
	opt := DefaultOptions()
	if raw == "" {
		return opt, nil
	}
	for _, tok := range strings.Split(raw, ",") {
		if tok == "" {
			continue
		}
		k, v, _ := strings.Cut(tok, "=")
		switch k {
		case "nodatacache":
			opt.NoDataCache = true
		case "cidalloc":
			switch v {
			case "linear", "bitmap":
				opt.CidAlloc = v
			default:
				return Options{}, fmt.Errorf("%w: hammer2fs: cidalloc: unknown policy %q", hammer2err.EINVAL, v)
			}
		case "debug":
			opt.Debug = true
		case "noauto":
			opt.NoAuto = true
		default:
			return Options{}, fmt.Errorf("%w: hammer2fs: unknown mount option %q", hammer2err.EINVAL, k)
		}
	}
	return opt, nil
}
