// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hammer2ondisk holds the HAMMER2 on-disk structural layout:
// magic numbers, type tags, fixed sizes, and the typed views cast
// over raw bytes read from a volume. None of this is core design --
// spec.md calls it out as an external collaborator -- so it carries
// no chain/lookup logic of its own; that lives in hammer2chain.
package hammer2ondisk

// Zone and header geometry (spec.md §6.1). A volume holds NumZones
// redundant header slot candidates, each VolumeBytes long, at byte
// offset zone_number*ZoneBytes for zone_number in HeaderZoneNumbers.
// Only the slots actually present and passing all three embedded CRCs
// are candidates for newest-by-mirror_tid selection (spec.md §4.1).
const (
	ZoneBytes   = 1 << 30 // stride between candidate zone numbers
	VolumeBytes = 65536   // size of one header slot
	NumZones    = 4       // number of redundant header slot candidates
)

// HeaderZoneNumbers are the well-known zone numbers that may hold a
// volume header candidate, in the order the newest-by-mirror_tid
// selection scans them. Byte offset of zone N is N*ZoneBytes.
var HeaderZoneNumbers = [NumZones]int64{0, 1, 4, 5}

const (
	MaxVolumes = 64

	// MagicLE / MagicBE are the two byte-order readings of the
	// volume header magic. Only MagicLE (host order on every
	// platform this reader targets) is accepted; MagicBE marks a
	// reverse-endian volume, which spec.md §1 says to reject at
	// mount.
	MagicLE uint64 = 0x48414D3200000000
	MagicBE uint64 = 0x00000000324D4148

	FSTypeUUIDString = "5cbb9ad1-862d-11dc-a94d-01301bb8a9f5"

	// PBufSize is the fixed physical block buffer size used for
	// compressed leaves and for sparse-hole synthesis (spec.md
	// GLOSSARY).
	PBufSize    = 65536
	PBufMask    = PBufSize - 1
	DevBSize    = 512
	SRootKey    = 0
	LOMask      = 0xFFFF

	// DirhashUserMsk clears bit 63, the bit dirhash always forces set
	// in a directory-entry key (spec.md §6.1): AND an inum/iparent
	// value with this to recover the plain, unflagged identifier.
	DirhashUserMsk uint64 = ^(uint64(1) << 63)

	// DirhashVisible marks the start of the directory-entry key space
	// when combined with the smallest real directory key (spec.md
	// §4.8): every dirhash forces this same top bit, so starting a
	// readdir scan at 2|DirhashVisible begins just past the reserved
	// 0/1 keys without risking a Less-than comparison against a real
	// entry's key.
	DirhashVisible uint64 = 1 << 63

	// KeyMax is the largest representable blockref/chain key, used as
	// the end of an unbounded range scan (spec.md §4.8, §4.9).
	KeyMax uint64 = ^uint64(0)
)

// Reserved CIDs (spec.md §3).
const (
	CIDNone   = 0
	CIDVolume = 1
	CIDFreemap = 2
	CIDFirst  = 3
)

// Reserved inode numbers (spec.md §3).
const (
	InumSupRoot = 0
	InumPFSRoot = 1
)

// BlockrefType enumerates the blockref.type tag (spec.md §3, §6.1).
type BlockrefType uint8

const (
	BlockrefTypeEmpty        BlockrefType = 0
	BlockrefTypeInode        BlockrefType = 1
	BlockrefTypeFreemapNode  BlockrefType = 5
	BlockrefTypeFreemapLeaf  BlockrefType = 6
	BlockrefTypeData         BlockrefType = 8
	BlockrefTypeIndirect     BlockrefType = 9
	BlockrefTypeDirent       BlockrefType = 11
	BlockrefTypeFreemap      BlockrefType = 254
	BlockrefTypeVolume       BlockrefType = 255
)

func (t BlockrefType) String() string {
	switch t {
	case BlockrefTypeEmpty:
		return "EMPTY"
	case BlockrefTypeInode:
		return "INODE"
	case BlockrefTypeFreemapNode:
		return "FREEMAP_NODE"
	case BlockrefTypeFreemapLeaf:
		return "FREEMAP_LEAF"
	case BlockrefTypeData:
		return "DATA"
	case BlockrefTypeIndirect:
		return "INDIRECT"
	case BlockrefTypeDirent:
		return "DIRENT"
	case BlockrefTypeFreemap:
		return "FREEMAP"
	case BlockrefTypeVolume:
		return "VOLUME"
	default:
		return "UNKNOWN"
	}
}

// IsNode reports whether the type is an interior node (INDIRECT or
// FREEMAP_NODE): the tree's branches, per GLOSSARY.
func (t BlockrefType) IsNode() bool {
	return t == BlockrefTypeIndirect || t == BlockrefTypeFreemapNode
}

// CheckMethod enumerates blockref.methods' check (verification) nibble.
type CheckMethod uint8

const (
	CheckNone     CheckMethod = 0
	CheckDisabled CheckMethod = 1
	CheckISCSI32  CheckMethod = 2
	CheckXXHash64 CheckMethod = 3
	CheckSHA192   CheckMethod = 4
	CheckFreemap  CheckMethod = 5
)

// CompMethod enumerates blockref.methods' compression nibble.
type CompMethod uint8

const (
	CompNone CompMethod = 0
	CompLZ4  CompMethod = 1
	CompZlib CompMethod = 2
)

// InodeType enumerates InodeMeta.typ (spec.md §3).
type InodeType uint8

const (
	InodeTypeDirectory InodeType = 0
	InodeTypeRegfile   InodeType = 1
	InodeTypeFifo      InodeType = 2
	InodeTypeCdev      InodeType = 3
	InodeTypeBdev      InodeType = 4
	InodeTypeSoftlink  InodeType = 5
	InodeTypeSocket    InodeType = 6
	InodeTypeWhiteout  InodeType = 7
)

func (t InodeType) String() string {
	switch t {
	case InodeTypeDirectory:
		return "DIRECTORY"
	case InodeTypeRegfile:
		return "REGFILE"
	case InodeTypeFifo:
		return "FIFO"
	case InodeTypeCdev:
		return "CDEV"
	case InodeTypeBdev:
		return "BDEV"
	case InodeTypeSoftlink:
		return "SOFTLINK"
	case InodeTypeSocket:
		return "SOCKET"
	case InodeTypeWhiteout:
		return "WHITEOUT"
	default:
		return "UNKNOWN"
	}
}

// ResolveHow is the resolve policy of spec.md §4.7/§9: whether a
// chain's payload is faulted eagerly during tree descent.
type ResolveHow uint8

const (
	ResolveMaybe  ResolveHow = 2
	ResolveAlways ResolveHow = 3
	ResolveMask   ResolveHow = 0x0F
)

// Normalize maps the RESOLVE_MASK==0 alias to RESOLVE_ALWAYS, and
// rejects any other unknown code, per spec.md §4.7 and the Open
// Question in §9 (which flags, but does not change, this behavior).
func (h ResolveHow) Normalize() (ResolveHow, bool) {
	masked := h & ResolveMask
	switch masked {
	case 0:
		return ResolveAlways, true
	case ResolveMaybe, ResolveAlways:
		return masked, true
	default:
		return 0, false
	}
}
