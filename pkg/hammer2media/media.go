// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hammer2media is the stateless media codec: typed views over
// raw blockref-addressed buffers, integrity verification, and
// decompression (spec.md §4.2). Nothing here touches the chain
// store's in-memory state.
package hammer2media

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

var iscsiCRCTable = crc32.MakeTable(crc32.Castagnoli)

// ChildBlockrefs returns the blockref children found in buf, given
// the parent's own blockref type (spec.md §4.2's typed-view rule).
// inode is only consulted when parentType is BlockrefTypeInode; hdr
// is only consulted for BlockrefTypeFreemap/BlockrefTypeVolume.
func ChildBlockrefs(parentType hammer2ondisk.BlockrefType, inode *hammer2ondisk.InodeData, buf []byte, hdr *hammer2ondisk.VolumeData) ([]hammer2ondisk.Blockref, error) {
	switch parentType {
	case hammer2ondisk.BlockrefTypeInode:
		if inode == nil {
			return nil, fmt.Errorf("%w: hammer2media: ChildBlockrefs: INODE parent requires inode data", hammer2err.EINVAL)
		}
		if inode.Meta.IsSupRoot() || !inode.Meta.HasDirectData() {
			bs, err := inode.Blockset()
			if err != nil {
				return nil, fmt.Errorf("%w: hammer2media: ChildBlockrefs: %v", hammer2err.EINVAL, err)
			}
			return bs[:], nil
		}
		return nil, nil
	case hammer2ondisk.BlockrefTypeIndirect, hammer2ondisk.BlockrefTypeFreemapNode:
		brefs, err := hammer2ondisk.DecodeBlockrefArray(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: hammer2media: ChildBlockrefs: %v", hammer2err.EINVAL, err)
		}
		return brefs, nil
	case hammer2ondisk.BlockrefTypeFreemap:
		if hdr == nil {
			return nil, fmt.Errorf("%w: hammer2media: ChildBlockrefs: FREEMAP parent requires volume header", hammer2err.EINVAL)
		}
		return hdr.FreemapBlockset[:], nil
	case hammer2ondisk.BlockrefTypeVolume:
		if hdr == nil {
			return nil, fmt.Errorf("%w: hammer2media: ChildBlockrefs: VOLUME parent requires volume header", hammer2err.EINVAL)
		}
		return hdr.SrootBlockset[:], nil
	default:
		return nil, fmt.Errorf("%w: hammer2media: ChildBlockrefs: blockref type %s has no children view", hammer2err.EINVAL, parentType)
	}
}

// VerifyChecksum checks buf against bref's embedded check value using
// the method encoded in bref.Methods (spec.md §4.2).
func VerifyChecksum(bref *hammer2ondisk.Blockref, buf []byte) error {
	switch bref.CheckMethod() {
	case hammer2ondisk.CheckNone, hammer2ondisk.CheckDisabled:
		return nil
	case hammer2ondisk.CheckISCSI32, hammer2ondisk.CheckFreemap:
		got := crc32.Checksum(buf, iscsiCRCTable)
		want := uint32(bref.Check[0]) | uint32(bref.Check[1])<<8 | uint32(bref.Check[2])<<16 | uint32(bref.Check[3])<<24
		if got != want {
			return fmt.Errorf("%w: hammer2media: iSCSI-CRC32 mismatch: have %#x, want %#x", hammer2err.EIO, got, want)
		}
		return nil
	case hammer2ondisk.CheckXXHash64:
		got := xxhash.Sum64(buf)
		var want uint64
		for i := 0; i < 8; i++ {
			want |= uint64(bref.Check[i]) << (8 * i)
		}
		if got != want {
			return fmt.Errorf("%w: hammer2media: XXHASH64 mismatch: have %#x, want %#x", hammer2err.EIO, got, want)
		}
		return nil
	case hammer2ondisk.CheckSHA192:
		sum := sha256.Sum256(buf)
		if !bytes.Equal(sum[:24], bref.Check[:24]) {
			return fmt.Errorf("%w: hammer2media: SHA-192 mismatch", hammer2err.EIO)
		}
		return nil
	default:
		return fmt.Errorf("%w: hammer2media: unknown check method %d", hammer2err.EINVAL, bref.CheckMethod())
	}
}

// Decompress expands buf per bref's compression method, returning at
// most PBUFSIZE bytes (spec.md §4.2). wantBytes is the decompressed
// size the caller expects (the inode record size, the logical block
// size, or the on-disk size); for CompNone the result is buf cut to
// at most wantBytes.
func Decompress(bref *hammer2ondisk.Blockref, buf []byte, wantBytes int) ([]byte, error) {
	switch bref.CompMethod() {
	case hammer2ondisk.CompNone:
		if wantBytes > len(buf) {
			wantBytes = len(buf)
		}
		return buf[:wantBytes], nil
	case hammer2ondisk.CompLZ4:
		out := make([]byte, hammer2ondisk.PBufSize)
		n, err := lz4.UncompressBlock(buf, out)
		if err != nil {
			return nil, fmt.Errorf("%w: hammer2media: lz4 decompress: %v", hammer2err.EIO, err)
		}
		if wantBytes > n {
			wantBytes = n
		}
		return out[:wantBytes], nil
	case hammer2ondisk.CompZlib:
		zr, err := zlib.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("%w: hammer2media: zlib: %v", hammer2err.EIO, err)
		}
		defer zr.Close()
		limited := io.LimitReader(zr, hammer2ondisk.PBufSize)
		out, err := io.ReadAll(limited)
		if err != nil {
			return nil, fmt.Errorf("%w: hammer2media: zlib decompress: %v", hammer2err.EIO, err)
		}
		if wantBytes > len(out) {
			wantBytes = len(out)
		}
		return out[:wantBytes], nil
	default:
		return nil, fmt.Errorf("%w: hammer2media: unknown compression method %d", hammer2err.EINVAL, bref.CompMethod())
	}
}
