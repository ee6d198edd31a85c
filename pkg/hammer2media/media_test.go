// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2media

import (
	"bytes"
	"compress/zlib"
	"hash/crc32"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

func TestVerifyChecksumISCSI32(t *testing.T) {
	t.Parallel()

	data := []byte("hammer2 leaf payload")
	sum := crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli))

	var bref hammer2ondisk.Blockref
	bref.Methods = uint8(hammer2ondisk.CheckISCSI32)
	bref.Check[0] = byte(sum)
	bref.Check[1] = byte(sum >> 8)
	bref.Check[2] = byte(sum >> 16)
	bref.Check[3] = byte(sum >> 24)

	assert.NoError(t, VerifyChecksum(&bref, data))

	bref.Check[0] ^= 0xFF
	assert.Error(t, VerifyChecksum(&bref, data))
}

func TestVerifyChecksumXXHash64(t *testing.T) {
	t.Parallel()

	data := []byte("another leaf")
	sum := xxhash.Sum64(data)

	var bref hammer2ondisk.Blockref
	bref.Methods = uint8(hammer2ondisk.CheckXXHash64)
	for i := 0; i < 8; i++ {
		bref.Check[i] = byte(sum >> (8 * i))
	}

	assert.NoError(t, VerifyChecksum(&bref, data))

	bref.Check[7] ^= 0xFF
	assert.Error(t, VerifyChecksum(&bref, data))
}

func TestVerifyChecksumNoneDisabled(t *testing.T) {
	t.Parallel()

	for _, m := range []hammer2ondisk.CheckMethod{hammer2ondisk.CheckNone, hammer2ondisk.CheckDisabled} {
		var bref hammer2ondisk.Blockref
		bref.Methods = uint8(m)
		assert.NoError(t, VerifyChecksum(&bref, []byte("whatever")))
	}
}

func TestVerifyChecksumUnknownMethod(t *testing.T) {
	t.Parallel()

	var bref hammer2ondisk.Blockref
	bref.Methods = 0x0F // nibble value with no CheckMethod mapping
	assert.Error(t, VerifyChecksum(&bref, []byte("x")))
}

func TestDecompressNone(t *testing.T) {
	t.Parallel()

	var bref hammer2ondisk.Blockref
	bref.Methods = uint8(hammer2ondisk.CompNone)

	out, err := Decompress(&bref, []byte("0123456789"), 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("01234"), out)
}

func TestDecompressLZ4(t *testing.T) {
	t.Parallel()

	want := bytes.Repeat([]byte("hammer2"), 100)
	compressed := make([]byte, len(want)*2)
	n, err := lz4.CompressBlock(want, compressed, nil)
	require.NoError(t, err)
	require.NotZero(t, n)
	compressed = compressed[:n]

	var bref hammer2ondisk.Blockref
	bref.Methods = uint8(hammer2ondisk.CompLZ4) << 4

	out, err := Decompress(&bref, compressed, len(want))
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestDecompressZlib(t *testing.T) {
	t.Parallel()

	want := []byte("hammer2 zlib round trip payload")
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(want)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var bref hammer2ondisk.Blockref
	bref.Methods = uint8(hammer2ondisk.CompZlib) << 4

	out, err := Decompress(&bref, buf.Bytes(), len(want))
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestDecompressUnknownMethod(t *testing.T) {
	t.Parallel()

	var bref hammer2ondisk.Blockref
	bref.Methods = uint8(0x0F) << 4
	_, err := Decompress(&bref, []byte("x"), 1)
	assert.Error(t, err)
}

func TestChildBlockrefsRequiresInodeData(t *testing.T) {
	t.Parallel()

	_, err := ChildBlockrefs(hammer2ondisk.BlockrefTypeInode, nil, nil, nil)
	assert.Error(t, err)
}

func TestChildBlockrefsIndirect(t *testing.T) {
	t.Parallel()

	a := hammer2ondisk.EncodeBlockref(hammer2ondisk.Blockref{Type: hammer2ondisk.BlockrefTypeData, Key: 1})
	brefs, err := ChildBlockrefs(hammer2ondisk.BlockrefTypeIndirect, nil, a, nil)
	require.NoError(t, err)
	require.Len(t, brefs, 1)
	assert.Equal(t, hammer2ondisk.BlockrefTypeData, brefs[0].Type)
}

func TestChildBlockrefsNoChildrenView(t *testing.T) {
	t.Parallel()

	_, err := ChildBlockrefs(hammer2ondisk.BlockrefTypeData, nil, nil, nil)
	assert.Error(t, err)
}
