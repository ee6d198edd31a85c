// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"bytes"

	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// MatchName reports whether c (an INODE or DIRENT chain) is named
// name, per spec.md §4.8's nresolve scan.
func (s *Store) MatchName(c *Chain, name string) bool {
	n := []byte(name)
	switch c.Bref.Type {
	case hammer2ondisk.BlockrefTypeInode:
		if c.inode == nil {
			return false
		}
		return int(c.inode.Meta.NameLen) == len(n) && bytes.Equal(c.inode.Filename[:len(n)], n)
	case hammer2ondisk.BlockrefTypeDirent:
		dh := hammer2ondisk.DecodeDirentHead(c.Bref.Embed)
		if int(dh.Namlen) != len(n) {
			return false
		}
		payload, _ := s.ReadData(c.CID)
		return bytes.Equal(hammer2ondisk.DirentName(&c.Bref, payload), n)
	default:
		return false
	}
}

// Name returns a chain's decoded name, or "", false if it isn't a
// named chain type or its data hasn't been faulted.
func (s *Store) Name(c *Chain) (string, bool) {
	switch c.Bref.Type {
	case hammer2ondisk.BlockrefTypeInode:
		if c.inode == nil {
			return "", false
		}
		return c.inode.Name(), true
	case hammer2ondisk.BlockrefTypeDirent:
		dh := hammer2ondisk.DecodeDirentHead(c.Bref.Embed)
		payload, _ := s.ReadData(c.CID)
		name := hammer2ondisk.DirentName(&c.Bref, payload)
		if len(name) != int(dh.Namlen) {
			return "", false
		}
		return string(name), true
	default:
		return "", false
	}
}
