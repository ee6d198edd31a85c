// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// InodeDataSize is the fixed on-disk size of an inode block (spec.md
// §6.1).
const InodeDataSize = 1024

// InodeEmbedDataBytes is the size of the tail union's direct-data
// form: 512 bytes of file content embedded in the inode block itself,
// in lieu of a 4-wide blockset (spec.md §4.2, §6.1).
const InodeEmbedDataBytes = 512

const (
	offInum     = 0
	offIParent  = 8
	offNameLen  = 16
	offType     = 17
	offOpFlags  = 18
	offMode     = 20
	offCTime    = 24
	offATime    = 32
	offMTime    = 40
	offUid      = 48
	offGid      = 64
	offPfsType  = 80
	offPfsClid  = 88
	offPfsFsid  = 104
	offSize     = 120
	offNlinks   = 128
	metaSize    = 136

	offFilename  = 136
	filenameSize = 255

	offTail = 512
	tailSize = InodeDataSize - offTail
)

func init() {
	if offFilename+filenameSize > offTail {
		panic("hammer2ondisk: inode filename overlaps tail union")
	}
	if tailSize != 4*BlockrefSize {
		panic("hammer2ondisk: inode tail union size does not match a 4-wide blockset")
	}
}

// InodeMeta is the fixed-layout metadata header of an InodeData
// (spec.md §6.1). HAMMER2 stores uid/gid as UUIDs rather than
// numeric ids, reflecting its DragonFly BSD origin.
type InodeMeta struct {
	Inum    uint64
	IParent uint64
	NameLen uint8
	Type    InodeType
	OpFlags uint8
	Mode    uint16
	CTime   uint64
	ATime   uint64
	MTime   uint64
	Uid     uuid.UUID
	Gid     uuid.UUID
	PfsType uint8
	PfsClid uuid.UUID
	PfsFsid uuid.UUID
	Size    uint64
	Nlinks  uint64
}

// IsSupRoot reports whether this is the per-PFS-set super-root inode
// installed at mount as InumSupRoot (spec.md §4.10).
func (m *InodeMeta) IsSupRoot() bool { return m.Inum == InumSupRoot }

// HasDirectData reports whether the inode's tail union holds up to
// InodeEmbedDataBytes of file content directly, rather than a 4-wide
// blockset of children (spec.md §4.2). Directories always use the
// blockset form, since their children are blockrefs (INODE/DIRENT),
// never inline bytes.
func (m *InodeMeta) HasDirectData() bool {
	return m.Type != InodeTypeDirectory && m.Size <= InodeEmbedDataBytes
}

// InodeData is the 1024-byte on-disk inode block (spec.md §6.1).
type InodeData struct {
	Meta     InodeMeta
	Filename [filenameSize]byte
	// Tail is the raw bytes of the tail union; callers reinterpret it
	// via DirectData or Blockset depending on Meta.IsSupRoot() /
	// Meta.HasDirectData() (spec.md §4.2).
	Tail [tailSize]byte
}

// Name returns the NUL/length-terminated filename as a string.
func (d *InodeData) Name() string {
	n := int(d.Meta.NameLen)
	if n > len(d.Filename) {
		n = len(d.Filename)
	}
	return string(d.Filename[:n])
}

// DirectData returns the tail union reinterpreted as embedded file
// content, valid when Meta.HasDirectData() is true.
func (d *InodeData) DirectData() []byte { return d.Tail[:] }

// Blockset returns the tail union reinterpreted as a 4-wide blockset,
// valid when Meta.IsSupRoot() || !Meta.HasDirectData().
func (d *InodeData) Blockset() ([4]Blockref, error) {
	var out [4]Blockref
	for i := 0; i < 4; i++ {
		br, err := DecodeBlockref(d.Tail[:], i*BlockrefSize)
		if err != nil {
			return out, err
		}
		out[i] = br
	}
	return out, nil
}

// DecodeInodeData parses one InodeDataSize-byte inode block.
func DecodeInodeData(raw []byte) (InodeData, error) {
	if len(raw) < InodeDataSize {
		return InodeData{}, fmt.Errorf("hammer2ondisk: DecodeInodeData: short buffer: need %d bytes, have %d",
			InodeDataSize, len(raw))
	}
	var d InodeData
	m := &d.Meta
	m.Inum = binary.LittleEndian.Uint64(raw[offInum:])
	m.IParent = binary.LittleEndian.Uint64(raw[offIParent:])
	m.NameLen = raw[offNameLen]
	m.Type = InodeType(raw[offType])
	m.OpFlags = raw[offOpFlags]
	m.Mode = binary.LittleEndian.Uint16(raw[offMode:])
	m.CTime = binary.LittleEndian.Uint64(raw[offCTime:])
	m.ATime = binary.LittleEndian.Uint64(raw[offATime:])
	m.MTime = binary.LittleEndian.Uint64(raw[offMTime:])
	var err error
	m.Uid, err = uuid.FromBytes(raw[offUid : offUid+16])
	if err != nil {
		return InodeData{}, fmt.Errorf("hammer2ondisk: DecodeInodeData: uid: %w", err)
	}
	m.Gid, err = uuid.FromBytes(raw[offGid : offGid+16])
	if err != nil {
		return InodeData{}, fmt.Errorf("hammer2ondisk: DecodeInodeData: gid: %w", err)
	}
	m.PfsType = raw[offPfsType]
	m.PfsClid, err = uuid.FromBytes(raw[offPfsClid : offPfsClid+16])
	if err != nil {
		return InodeData{}, fmt.Errorf("hammer2ondisk: DecodeInodeData: pfs_clid: %w", err)
	}
	m.PfsFsid, err = uuid.FromBytes(raw[offPfsFsid : offPfsFsid+16])
	if err != nil {
		return InodeData{}, fmt.Errorf("hammer2ondisk: DecodeInodeData: pfs_fsid: %w", err)
	}
	m.Size = binary.LittleEndian.Uint64(raw[offSize:])
	m.Nlinks = binary.LittleEndian.Uint64(raw[offNlinks:])

	copy(d.Filename[:], raw[offFilename:offFilename+filenameSize])
	copy(d.Tail[:], raw[offTail:offTail+tailSize])
	return d, nil
}
