// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
)

// Byte layout of VolumeData within its VolumeBytes-sized header slot
// (spec.md §6.1). Three redundant iSCSI-CRC32 checksums protect
// ranges of the slot (two disjoint sections, and both together) so
// that a torn or partially-corrupted
// write can still be detected precisely:
//
//	sect0Range    -- the scalar header fields (magic through allocator_free)
//	sect1Range    -- the sroot and freemap blocksets
//	wholeRange    -- sect0Range and sect1Range together
const (
	offMagic          = 0
	offVoluID         = 8
	offVersion        = 12
	offNVolumes       = 16
	offFSID           = 24
	offFSType         = 40
	offVoluLoff       = 56
	voluLoffBytes     = MaxVolumes * 8
	offVoluSize       = offVoluLoff + voluLoffBytes
	offMirrorTID      = offVoluSize + 8
	offAllocatorSize  = offMirrorTID + 8
	offAllocatorFree  = offAllocatorSize + 8
	offSrootBlockset  = offAllocatorFree + 8
	srootBlocksetSize = 4 * BlockrefSize
	offFreemapBlockset = offSrootBlockset + srootBlocksetSize
	freemapBlocksetSize = 4 * BlockrefSize
	offICRCSect0      = offFreemapBlockset + freemapBlocksetSize
	offICRCSect1      = offICRCSect0 + 4
	offICRCWhole      = offICRCSect1 + 4
	voluHeaderTailEnd = offICRCWhole + 4
)

var (
	sect0Range = [2]int{offMagic, offSrootBlockset}
	sect1Range = [2]int{offSrootBlockset, offICRCSect0}
	wholeRange = [2]int{offMagic, offICRCSect0}
)

func init() {
	if voluHeaderTailEnd > VolumeBytes {
		panic("hammer2ondisk: volume header layout overflows VolumeBytes")
	}
}

// VolumeData is the per-slot volume header (spec.md §6.1).
type VolumeData struct {
	Magic          uint64
	VoluID         uint32
	Version        uint32
	NVolumes       uint32
	FSID           uuid.UUID
	FSType         uuid.UUID
	VoluLoff       [MaxVolumes]uint64
	VoluSize       uint64
	MirrorTID      uint64
	AllocatorSize  uint64
	AllocatorFree  uint64
	SrootBlockset  [4]Blockref
	FreemapBlockset [4]Blockref
	ICRCSect0      uint32
	ICRCSect1      uint32
	ICRCWhole      uint32
}

// iscsiCRCTable is the Castagnoli polynomial table HAMMER2 calls
// "iSCSI-CRC32" (spec.md §4.2, §6.1).
var iscsiCRCTable = crc32.MakeTable(crc32.Castagnoli)

func iscsiCRC32(b []byte) uint32 { return crc32.Checksum(b, iscsiCRCTable) }

// IsReverseEndian reports whether the header's magic matches the
// byte-swapped value, meaning this volume was written on a
// foreign-endian host (spec.md §4.1, rejected at mount).
func IsReverseEndian(raw []byte) bool {
	if len(raw) < 8 {
		return false
	}
	return binary.LittleEndian.Uint64(raw[:8]) == MagicBE
}

// DecodeVolumeData parses and CRC-validates one header slot. It
// returns an error if any of the three embedded iSCSI-CRC32 checksums
// do not match, or if the buffer is short.
func DecodeVolumeData(raw []byte) (VolumeData, error) {
	if len(raw) < voluHeaderTailEnd {
		return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: short buffer: need %d bytes, have %d",
			voluHeaderTailEnd, len(raw))
	}
	var v VolumeData
	v.Magic = binary.LittleEndian.Uint64(raw[offMagic:])
	v.VoluID = binary.LittleEndian.Uint32(raw[offVoluID:])
	v.Version = binary.LittleEndian.Uint32(raw[offVersion:])
	v.NVolumes = binary.LittleEndian.Uint32(raw[offNVolumes:])
	var err error
	v.FSID, err = uuid.FromBytes(raw[offFSID : offFSID+16])
	if err != nil {
		return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: fsid: %w", err)
	}
	v.FSType, err = uuid.FromBytes(raw[offFSType : offFSType+16])
	if err != nil {
		return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: fstype: %w", err)
	}
	for i := 0; i < MaxVolumes; i++ {
		v.VoluLoff[i] = binary.LittleEndian.Uint64(raw[offVoluLoff+i*8:])
	}
	v.VoluSize = binary.LittleEndian.Uint64(raw[offVoluSize:])
	v.MirrorTID = binary.LittleEndian.Uint64(raw[offMirrorTID:])
	v.AllocatorSize = binary.LittleEndian.Uint64(raw[offAllocatorSize:])
	v.AllocatorFree = binary.LittleEndian.Uint64(raw[offAllocatorFree:])
	for i := 0; i < 4; i++ {
		br, err := DecodeBlockref(raw, offSrootBlockset+i*BlockrefSize)
		if err != nil {
			return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: sroot_blockset[%d]: %w", i, err)
		}
		v.SrootBlockset[i] = br
	}
	for i := 0; i < 4; i++ {
		br, err := DecodeBlockref(raw, offFreemapBlockset+i*BlockrefSize)
		if err != nil {
			return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: freemap_blockset[%d]: %w", i, err)
		}
		v.FreemapBlockset[i] = br
	}
	v.ICRCSect0 = binary.LittleEndian.Uint32(raw[offICRCSect0:])
	v.ICRCSect1 = binary.LittleEndian.Uint32(raw[offICRCSect1:])
	v.ICRCWhole = binary.LittleEndian.Uint32(raw[offICRCWhole:])

	if got := iscsiCRC32(raw[sect0Range[0]:sect0Range[1]]); got != v.ICRCSect0 {
		return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: icrc_sect0 mismatch: have %#x, want %#x", got, v.ICRCSect0)
	}
	if got := iscsiCRC32(raw[sect1Range[0]:sect1Range[1]]); got != v.ICRCSect1 {
		return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: icrc_sect1 mismatch: have %#x, want %#x", got, v.ICRCSect1)
	}
	if got := iscsiCRC32(raw[wholeRange[0]:wholeRange[1]]); got != v.ICRCWhole {
		return VolumeData{}, fmt.Errorf("hammer2ondisk: DecodeVolumeData: icrc_whole mismatch: have %#x, want %#x", got, v.ICRCWhole)
	}
	return v, nil
}
