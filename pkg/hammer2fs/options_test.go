// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefault(t *testing.T) {
	t.Parallel()

	opt, err := ParseOptions("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opt)
}

func TestParseOptionsAll(t *testing.T) {
	t.Parallel()

	opt, err := ParseOptions("nodatacache,cidalloc=bitmap,debug,noauto")
	require.NoError(t, err)
	assert.True(t, opt.NoDataCache)
	assert.Equal(t, "bitmap", opt.CidAlloc)
	assert.True(t, opt.Debug)
	assert.True(t, opt.NoAuto)
}

func TestParseOptionsCidAllocLinear(t *testing.T) {
	t.Parallel()

	opt, err := ParseOptions("cidalloc=linear")
	require.NoError(t, err)
	assert.Equal(t, "linear", opt.CidAlloc)
}

func TestParseOptionsUnknownCidAlloc(t *testing.T) {
	t.Parallel()

	_, err := ParseOptions("cidalloc=rotating")
	assert.Error(t, err)
}

func TestParseOptionsUnknownKey(t *testing.T) {
	t.Parallel()

	_, err := ParseOptions("bogus")
	assert.Error(t, err)
}

func TestParseOptionsIgnoresEmptyTokens(t *testing.T) {
	t.Parallel()

	opt, err := ParseOptions(",debug,,")
	require.NoError(t, err)
	assert.True(t, opt.Debug)
}
