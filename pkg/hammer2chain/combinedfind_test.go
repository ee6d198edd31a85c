// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kusumi/hammer2/lib/containers"
)

func TestFindChildPicksSmallestOverlap(t *testing.T) {
	t.Parallel()

	var idx containers.ChildIndex[CID]
	idx.Insert(containers.Entry[CID]{CID: 1, KeyRange: containers.KeyRange{Key: 0, Keybits: 8}})
	idx.Insert(containers.Entry[CID]{CID: 2, KeyRange: containers.KeyRange{Key: 256, Keybits: 8}})

	cid, key, keyNext, found, err := findChild(&idx, 0, 1000, ^uint64(0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, CID(1), cid)
	assert.Equal(t, uint64(0), key)
	// keyNext narrows to just past the first child's end, so the
	// caller's next iteration picks up right where this child leaves
	// off.
	assert.Equal(t, uint64(256), keyNext)
}

func TestFindChildNoOverlap(t *testing.T) {
	t.Parallel()

	var idx containers.ChildIndex[CID]
	idx.Insert(containers.Entry[CID]{CID: 1, KeyRange: containers.KeyRange{Key: 1000, Keybits: 4}})

	_, _, _, found, err := findChild(&idx, 0, 10, ^uint64(0))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindChildIllegalOverlap(t *testing.T) {
	t.Parallel()

	var idx containers.ChildIndex[CID]
	idx.Insert(containers.Entry[CID]{CID: 1, KeyRange: containers.KeyRange{Key: 5, Keybits: 4}})
	idx.Insert(containers.Entry[CID]{CID: 2, KeyRange: containers.KeyRange{Key: 5, Keybits: 4}})

	_, _, _, _, err := findChild(&idx, 0, 100, ^uint64(0))
	assert.Error(t, err)
}

func TestFindChildEmptyIndex(t *testing.T) {
	t.Parallel()

	var idx containers.ChildIndex[CID]
	_, _, keyNext, found, err := findChild(&idx, 0, 100, 500)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, uint64(500), keyNext)
}
