// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2fs

import (
	"fmt"
	"os"
	"strings"

	"github.com/kusumi/hammer2/pkg/hammer2chain"
)

// CompatEnv names the environment variable spec.md §6.3 says selects
// the legacy chain-dump format, diagnostic only.
const CompatEnv = "HAMMER2_COMPAT"

// legacyDumpActive reports whether HAMMER2_COMPAT is set to a
// non-empty value in the process environment.
func legacyDumpActive() bool {
	return os.Getenv(CompatEnv) != ""
}

// DumpChain renders the chain subtree rooted at cid as an indented
// tree, for diagnostic use only (never consulted by any operation).
// When HAMMER2_COMPAT is set, entries use the original reader's
// "chain(...)" one-liner form instead of this reader's own layout.
func (fs *FS) DumpChain(cid hammer2chain.CID) (string, error) {
	var sb strings.Builder
	if err := fs.dumpChain(&sb, cid, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (fs *FS) dumpChain(sb *strings.Builder, cid hammer2chain.CID, depth int) error {
	c, err := fs.Chains.Get(cid)
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)
	if legacyDumpActive() {
		fmt.Fprintf(sb, "%schain(type=%s, key=%#x, keybits=%d)\n", indent, c.Bref.Type, c.Bref.Key, c.Bref.Keybits)
	} else {
		fmt.Fprintf(sb, "%scid=%d type=%-8s key=%#x/%d resident=%t\n",
			indent, cid, c.Bref.Type, c.Bref.Key, c.Bref.Keybits, c.Resident())
	}
	for _, e := range fs.childrenSnapshot(c) {
		if err := fs.dumpChain(sb, e, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// childrenSnapshot returns the CIDs of c's in-memory children, for
// DumpChain's walk only -- this does not consult the on-disk
// blockref array, since the dump is a debugging aid over whatever is
// already resident, not a full materialisation.
func (fs *FS) childrenSnapshot(c *hammer2chain.Chain) []hammer2chain.CID {
	var out []hammer2chain.CID
	for _, e := range c.Children() {
		out = append(out, e.CID)
	}
	return out
}
