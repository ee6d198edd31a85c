// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockrefRoundTrip(t *testing.T) {
	t.Parallel()

	want := Blockref{
		Type:      BlockrefTypeIndirect,
		Methods:   uint8(CompLZ4)<<4 | uint8(CheckXXHash64),
		CopyID:    1,
		Keybits:   8,
		Vradix:    0,
		Flags:     0,
		LeafCount: 3,
		Key:       0x100,
		DataOff:   0x4000 | 16, // radix 16 == 64KiB block
		MirrorTID: 42,
		ModifyTID: 43,
		UpdateTID: 44,
	}
	want.Embed[0] = 0xAB
	want.Check[0] = 0xCD

	buf := EncodeBlockref(want)
	require.Len(t, buf, BlockrefSize)

	got, err := DecodeBlockref(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, CheckXXHash64, got.CheckMethod())
	assert.Equal(t, CompLZ4, got.CompMethod())
	assert.Equal(t, uint8(16), got.DataRadix())
	assert.True(t, got.HasExternalData())
	assert.Equal(t, uint64(1)<<16, got.DataBytes())
	assert.Equal(t, want.DataOff&^0x3F, got.RawDataOff())
}

func TestBlockrefKeyEnd(t *testing.T) {
	t.Parallel()

	b := Blockref{Key: 0, Keybits: 8}
	assert.Equal(t, uint64(255), b.KeyEnd())

	b = Blockref{Key: 100, Keybits: 64}
	assert.Equal(t, ^uint64(0), b.KeyEnd())
}

func TestDecodeBlockrefArray(t *testing.T) {
	t.Parallel()

	a := EncodeBlockref(Blockref{Type: BlockrefTypeInode, Key: 1})
	b := EncodeBlockref(Blockref{Type: BlockrefTypeData, Key: 2})
	buf := append(append([]byte{}, a...), b...)

	brefs, err := DecodeBlockrefArray(buf)
	require.NoError(t, err)
	require.Len(t, brefs, 2)
	assert.Equal(t, BlockrefTypeInode, brefs[0].Type)
	assert.Equal(t, BlockrefTypeData, brefs[1].Type)

	_, err = DecodeBlockrefArray(buf[:len(buf)-1])
	assert.Error(t, err)
}

func TestDecodeBlockrefShortBuffer(t *testing.T) {
	t.Parallel()

	_, err := DecodeBlockref(make([]byte, BlockrefSize-1), 0)
	assert.Error(t, err)
}
