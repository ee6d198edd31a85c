// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import "encoding/binary"

// DirentHead is the overlay of a DIRENT blockref's 16-byte Embed
// field (spec.md §6.1): inum of the target inode, the entry's
// name length, and its type, so a directory listing can synthesize a
// Dirent without faulting the target inode.
type DirentHead struct {
	Inum   uint64
	Namlen uint16
	Type   InodeType
}

// DecodeDirentHead reinterprets a blockref's Embed field as a
// DirentHead. Only valid when Bref.Type == BlockrefTypeDirent.
func DecodeDirentHead(embed [16]byte) DirentHead {
	return DirentHead{
		Inum:   binary.LittleEndian.Uint64(embed[0:8]),
		Namlen: binary.LittleEndian.Uint16(embed[8:10]),
		Type:   InodeType(embed[10]),
	}
}

// DirentName returns a DIRENT chain's name: inline in Check when it
// fits, else the chain's faulted payload bytes (spec.md §4.7's "DIRENT
// chains also store the payload if bytes > 0").
func DirentName(bref *Blockref, payload []byte) []byte {
	dh := DecodeDirentHead(bref.Embed)
	n := int(dh.Namlen)
	if n <= len(bref.Check) {
		return bref.Check[:n]
	}
	if n > len(payload) {
		n = len(payload)
	}
	return payload[:n]
}
