// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2ondisk

import (
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildVolumeHeader assembles one VolumeBytes-sized, CRC-correct
// header slot so DecodeVolumeData can be exercised without a real
// disk image.
func buildVolumeHeader(t *testing.T, mirrorTID uint64) []byte {
	t.Helper()

	raw := make([]byte, VolumeBytes)
	binary.LittleEndian.PutUint64(raw[offMagic:], MagicLE)
	binary.LittleEndian.PutUint32(raw[offVoluID:], 0)
	binary.LittleEndian.PutUint32(raw[offVersion:], 2)
	binary.LittleEndian.PutUint32(raw[offNVolumes:], 1)
	copy(raw[offFSID:offFSID+16], uuid.New()[:])
	copy(raw[offFSType:offFSType+16], uuid.New()[:])
	binary.LittleEndian.PutUint64(raw[offVoluSize:], VolumeBytes*4)
	binary.LittleEndian.PutUint64(raw[offMirrorTID:], mirrorTID)
	binary.LittleEndian.PutUint64(raw[offAllocatorSize:], VolumeBytes*4)
	binary.LittleEndian.PutUint64(raw[offAllocatorFree:], VolumeBytes*2)

	binary.LittleEndian.PutUint32(raw[offICRCSect0:], iscsiCRC32(raw[sect0Range[0]:sect0Range[1]]))
	binary.LittleEndian.PutUint32(raw[offICRCSect1:], iscsiCRC32(raw[sect1Range[0]:sect1Range[1]]))
	binary.LittleEndian.PutUint32(raw[offICRCWhole:], iscsiCRC32(raw[wholeRange[0]:wholeRange[1]]))
	return raw
}

func TestDecodeVolumeDataValid(t *testing.T) {
	t.Parallel()

	raw := buildVolumeHeader(t, 100)
	v, err := DecodeVolumeData(raw)
	require.NoError(t, err)
	assert.Equal(t, MagicLE, v.Magic)
	assert.Equal(t, uint64(100), v.MirrorTID)
	assert.Equal(t, uint32(1), v.NVolumes)
}

func TestDecodeVolumeDataCorruptSect0(t *testing.T) {
	t.Parallel()

	raw := buildVolumeHeader(t, 100)
	raw[offVersion] ^= 0xFF // inside sect0Range and wholeRange, invalidates both
	_, err := DecodeVolumeData(raw)
	assert.Error(t, err)
}

func TestDecodeVolumeDataCorruptSect1(t *testing.T) {
	t.Parallel()

	raw := buildVolumeHeader(t, 100)
	raw[offSrootBlockset] ^= 0xFF // inside sect1Range and wholeRange only
	_, err := DecodeVolumeData(raw)
	assert.Error(t, err)
}

func TestDecodeVolumeDataShortBuffer(t *testing.T) {
	t.Parallel()

	_, err := DecodeVolumeData(make([]byte, 10))
	assert.Error(t, err)
}

func TestIsReverseEndian(t *testing.T) {
	t.Parallel()

	raw := buildVolumeHeader(t, 0)
	assert.False(t, IsReverseEndian(raw))

	be := make([]byte, 8)
	binary.LittleEndian.PutUint64(be, MagicBE)
	assert.True(t, IsReverseEndian(be))

	assert.False(t, IsReverseEndian(nil))
}
