// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

// Dirhash computes the HAMMER2 directory filename hash (spec.md
// §6.1, GLOSSARY). It is a derivative of the HAMMER1 directory hash:
// the name is split on '.', '-', '_', '~' delimiters, the iSCSI-CRC32
// of each non-empty field is summed into the top 32 bits (with bit 63
// forced set, since bit 63 clear is reserved for hidden hardlinked
// inodes in HAMMER1 and is simply never cleared here), and a
// whole-name CRC is XOR-folded into the middle 16 bits to reduce
// collisions between names that happen to share delimiter-split
// fields. Bit 15 is always set, reserving the low 0x0000-0x7fff range
// of the low 16 bits for the synthetic "." and ".." readdir cookies.
func Dirhash(name []byte) uint64 {
	var crcx uint32
	i, j := 0, 0
	for i < len(name) {
		switch name[i] {
		case '.', '-', '_', '~':
			if i != j {
				crcx += iscsiCRC32(name[j:i])
			}
			j = i + 1
		}
		i++
	}
	if i != j {
		crcx += iscsiCRC32(name[j:i])
	}

	crcx |= 0x8000_0000
	key := uint64(crcx) << 32

	whole := iscsiCRC32(name)
	whole ^= whole << 16
	key |= uint64(whole) & 0xFFFF_0000

	return key | 0x8000
}
