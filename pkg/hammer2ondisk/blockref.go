// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import (
	"encoding/binary"
	"fmt"
)

// BlockrefSize is the fixed on-disk size of a Blockref (spec.md §6.1).
const BlockrefSize = 128

// Blockref is the 128-byte on-disk descriptor of a subtree root
// (spec.md §3, §6.1). The keybits radix defines the subtree's key
// range [Key, Key+2^Keybits); DataOff packs a physical byte offset in
// its high bits and the radix of the referenced data block in its
// low 6 bits, where radix 0 means the data is embedded in Embed/Check
// rather than stored externally.
type Blockref struct {
	Type      BlockrefType
	Methods   uint8 // high nibble: compression, low nibble: check
	CopyID    uint8
	Keybits   uint8
	Vradix    uint8 // radix of bref.check's volume-block overlay, when applicable
	Flags     uint8
	LeafCount uint16
	Key       uint64
	DataOff   uint64
	MirrorTID uint64
	ModifyTID uint64
	Embed     [16]byte
	Check     [64]byte
	UpdateTID uint64
}

// CheckMethod extracts the low nibble of Methods.
func (b *Blockref) CheckMethod() CheckMethod { return CheckMethod(b.Methods & 0x0F) }

// CompMethod extracts the high nibble of Methods.
func (b *Blockref) CompMethod() CompMethod { return CompMethod(b.Methods >> 4) }

// DataRadix is the radix (log2 size) of the external data block, or 0
// if the blockref has no external data (spec.md §3).
func (b *Blockref) DataRadix() uint8 { return uint8(b.DataOff & 0x3F) }

// HasExternalData reports whether the blockref's payload lives
// outside of the blockref itself.
func (b *Blockref) HasExternalData() bool { return b.DataRadix() != 0 }

// DataBytes is the physical size of the referenced data block: 2^radix,
// or 0 if there is no external data.
func (b *Blockref) DataBytes() uint64 {
	r := b.DataRadix()
	if r == 0 {
		return 0
	}
	return uint64(1) << r
}

// RawDataOff is the physical byte offset with the radix bits masked
// off -- the offset actually passed to Volume.Pread.
func (b *Blockref) RawDataOff() uint64 {
	return b.DataOff &^ 0x3F
}

// KeyEnd is the inclusive end of the subtree's key range.
func (b *Blockref) KeyEnd() uint64 {
	if b.Keybits >= 64 {
		return ^uint64(0)
	}
	delta := (uint64(1) << b.Keybits) - 1
	end := b.Key + delta
	if end < b.Key {
		return ^uint64(0)
	}
	return end
}

func (b *Blockref) IsEmpty() bool { return b.Type == BlockrefTypeEmpty }

// DecodeBlockref parses one 128-byte Blockref from buf[off:].
func DecodeBlockref(buf []byte, off int) (Blockref, error) {
	if off+BlockrefSize > len(buf) {
		return Blockref{}, fmt.Errorf("hammer2ondisk: DecodeBlockref: short buffer: need %d bytes at offset %d, have %d",
			BlockrefSize, off, len(buf))
	}
	b := buf[off : off+BlockrefSize]
	var r Blockref
	r.Type = BlockrefType(b[0])
	r.Methods = b[1]
	r.CopyID = b[2]
	r.Keybits = b[3]
	r.Vradix = b[4]
	r.Flags = b[5]
	r.LeafCount = binary.LittleEndian.Uint16(b[6:8])
	r.Key = binary.LittleEndian.Uint64(b[8:16])
	r.DataOff = binary.LittleEndian.Uint64(b[16:24])
	r.MirrorTID = binary.LittleEndian.Uint64(b[24:32])
	r.ModifyTID = binary.LittleEndian.Uint64(b[32:40])
	copy(r.Embed[:], b[40:56])
	copy(r.Check[:], b[56:120])
	r.UpdateTID = binary.LittleEndian.Uint64(b[120:128])
	return r, nil
}

// DecodeBlockrefArray casts an entire buffer (whose length must be a
// multiple of BlockrefSize) into a Blockref slice -- the "entire
// buffer is an array of blockrefs" case of the media codec's typed
// views (spec.md §4.2) for INDIRECT and FREEMAP_NODE parents.
func DecodeBlockrefArray(buf []byte) ([]Blockref, error) {
	if len(buf)%BlockrefSize != 0 {
		return nil, fmt.Errorf("hammer2ondisk: DecodeBlockrefArray: buffer length %d is not a multiple of %d",
			len(buf), BlockrefSize)
	}
	n := len(buf) / BlockrefSize
	out := make([]Blockref, n)
	for i := 0; i < n; i++ {
		br, err := DecodeBlockref(buf, i*BlockrefSize)
		if err != nil {
			return nil, err
		}
		out[i] = br
	}
	return out, nil
}

// EncodeBlockref is the inverse of DecodeBlockref, used only by tests
// to build synthetic fixtures (this is a read-only reader; there is
// no on-disk write path).
func EncodeBlockref(b Blockref) []byte {
	buf := make([]byte, BlockrefSize)
	buf[0] = byte(b.Type)
	buf[1] = b.Methods
	buf[2] = b.CopyID
	buf[3] = b.Keybits
	buf[4] = b.Vradix
	buf[5] = b.Flags
	binary.LittleEndian.PutUint16(buf[6:8], b.LeafCount)
	binary.LittleEndian.PutUint64(buf[8:16], b.Key)
	binary.LittleEndian.PutUint64(buf[16:24], b.DataOff)
	binary.LittleEndian.PutUint64(buf[24:32], b.MirrorTID)
	binary.LittleEndian.PutUint64(buf[32:40], b.ModifyTID)
	copy(buf[40:56], b.Embed[:])
	copy(buf[56:120], b.Check[:])
	binary.LittleEndian.PutUint64(buf[120:128], b.UpdateTID)
	return buf
}
