// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2volume

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()

	paths, label := ParseSpec("/dev/da0:/dev/da1@DATA2")
	assert.Equal(t, []string{"/dev/da0", "/dev/da1"}, paths)
	assert.Equal(t, "DATA2", label)

	paths, label = ParseSpec("/dev/da0")
	assert.Equal(t, []string{"/dev/da0"}, paths)
	assert.Equal(t, "DATA", label)
}

func TestCheckInvariantsSingleVolume(t *testing.T) {
	t.Parallel()

	vols := []*Volume{{ID: 0}}
	assert.NoError(t, checkInvariants(vols, hammer2ondisk.VolumeData{NVolumes: 1}))

	vols = []*Volume{{ID: 0}, {ID: 1}}
	assert.Error(t, checkInvariants(vols, hammer2ondisk.VolumeData{NVolumes: 1}))
}

func TestCheckInvariantsMultiVolume(t *testing.T) {
	t.Parallel()

	const unit = int64(1) << 30
	vols := []*Volume{
		{ID: 0, Loff: 0, FileSize: unit},
		{ID: 1, Loff: uint64(unit), FileSize: unit},
	}
	assert.NoError(t, checkInvariants(vols, hammer2ondisk.VolumeData{NVolumes: 2}))

	// Non-contiguous ids.
	bad := []*Volume{{ID: 0, Loff: 0, FileSize: unit}, {ID: 2, Loff: uint64(unit), FileSize: unit}}
	assert.Error(t, checkInvariants(bad, hammer2ondisk.VolumeData{NVolumes: 2}))

	// Non-contiguous offsets.
	bad = []*Volume{{ID: 0, Loff: 0, FileSize: unit}, {ID: 1, Loff: uint64(unit) + 1, FileSize: unit}}
	assert.Error(t, checkInvariants(bad, hammer2ondisk.VolumeData{NVolumes: 2}))

	// Misaligned size.
	bad = []*Volume{{ID: 0, Loff: 0, FileSize: unit + 1}, {ID: 1, Loff: uint64(unit) + 1, FileSize: unit}}
	assert.Error(t, checkInvariants(bad, hammer2ondisk.VolumeData{NVolumes: 2}))
}

func TestGetVolume(t *testing.T) {
	t.Parallel()

	s := &Set{Volumes: []*Volume{
		{ID: 0, Loff: 0, FileSize: 1024},
		{ID: 1, Loff: 1024, FileSize: 1024},
	}}

	v, err := s.GetVolume(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v.ID)

	v, err = s.GetVolume(1024)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v.ID)

	_, err = s.GetVolume(2048)
	assert.ErrorIs(t, err, hammer2err.ENODEV)
}

func newTempVolume(t *testing.T, size int64) *Volume {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "hammer2vol")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	t.Cleanup(func() { f.Close() })

	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i)
	}
	_, err = f.WriteAt(buf, 0)
	require.NoError(t, err)

	return &Volume{ID: 0, Loff: 0, FileSize: size, f: f}
}

func TestPread(t *testing.T) {
	t.Parallel()

	v := newTempVolume(t, 4096)
	s := &Set{Volumes: []*Volume{v}}

	buf, err := s.Pread(v, 16, 512)
	require.NoError(t, err)
	require.Len(t, buf, 16)
	assert.Equal(t, byte(512&0xFF), buf[0])

	_, err = s.Pread(v, 16, 1)
	assert.ErrorIs(t, err, hammer2err.EINVAL)
}

func TestReadMedia(t *testing.T) {
	t.Parallel()

	v := newTempVolume(t, hammer2ondisk.PBufSize*2)
	s := &Set{Volumes: []*Volume{v}}

	var bref hammer2ondisk.Blockref
	bref.DataOff = 512 | 9 // radix 9 -> 512-byte external block at offset 512

	out, err := s.ReadMedia(&bref, 512)
	require.NoError(t, err)
	require.Len(t, out, 512)
	assert.Equal(t, byte(512&0xFF), out[0])

	_, err = s.ReadMedia(&bref, 0)
	assert.ErrorIs(t, err, hammer2err.EINVAL)

	var huge hammer2ondisk.Blockref
	huge.DataOff = 0
	_, err = s.ReadMedia(&huge, hammer2ondisk.PBufSize+1)
	assert.ErrorIs(t, err, hammer2err.EINVAL)
}
