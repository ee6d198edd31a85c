// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Comparator edges, keybits=8 so delta = 2^8-1 = 255 (spec.md §8
// scenario 1): a boundary touch folds into Equal, a one-past gap is
// Less/Greater.
func TestCompareRangeEdges(t *testing.T) {
	t.Parallel()

	x := KeyRange{Key: 0x00, Keybits: 8}

	touching := KeyRange{Key: 0x100 - 1, Keybits: 8}
	assert.Equal(t, 0, CompareRange(x, touching))
	assert.Equal(t, 0, CompareRange(touching, x))

	beyond := KeyRange{Key: 0x100, Keybits: 8}
	assert.Equal(t, -1, CompareRange(x, beyond))
	assert.Equal(t, 1, CompareRange(beyond, x))

	farBeyond := KeyRange{Key: 0x101, Keybits: 8}
	assert.Equal(t, -1, CompareRange(x, farBeyond))
	assert.Equal(t, 1, CompareRange(farBeyond, x))
}

func TestKeyRangeEndSaturates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(255), KeyRange{Key: 0, Keybits: 8}.End())
	assert.Equal(t, ^uint64(0), KeyRange{Key: 0, Keybits: 64}.End())
	assert.Equal(t, ^uint64(0), KeyRange{Key: ^uint64(0) - 10, Keybits: 8}.End())
}

// Invariant 1 of spec.md §8: after any sequence of insertions of
// siblings with disjoint ranges, the index is sorted by key and
// siblings never interleave out of order.
func TestChildIndexInsertionIsKeySorted(t *testing.T) {
	t.Parallel()

	keys := []uint64{767, 512, 511, 256, 255, 0}
	var idx ChildIndex[int]
	for i, k := range keys {
		idx.Insert(Entry[int]{CID: i, KeyRange: KeyRange{Key: k, Keybits: 0}})
	}

	a := assert.New(t)
	a.Equal(6, idx.Len())

	var last uint64
	for i := 0; i < idx.Len(); i++ {
		e := idx.At(i)
		if i > 0 {
			a.GreaterOrEqual(e.Key, last)
		}
		last = e.Key
	}

	wantOrder := []uint64{0, 255, 256, 511, 512, 767}
	for i, want := range wantOrder {
		a.Equal(want, idx.At(i).Key)
	}
}

// Ordered-insertion scenario of spec.md §8 scenario 2: three key
// groups (n=8, delta=255) at K0=0, K1=0x10<<8, K2=0x20<<8, each
// holding two children -- the group's base key and base+delta --
// inserted highest-group-first, high-child-of-each-group-first. The
// two children of a group touch at base+delta, so they compare Equal
// and a stable sort by CompareRange keeps them in insertion order;
// no two groups' ranges compare Equal, so the three groups are moved
// into key order. The result is the CID sequence (4,5,2,3,0,1).
func TestChildIndexInsertionReproducesOrderedInsertionScenario(t *testing.T) {
	t.Parallel()

	const (
		n     = 8
		delta = uint64(1)<<n - 1
		k0    = uint64(0x00) << n
		k1    = uint64(0x10) << n
		k2    = uint64(0x20) << n
	)

	var idx ChildIndex[int]
	idx.Insert(Entry[int]{CID: 0, KeyRange: KeyRange{Key: k2 + delta, Keybits: n}})
	idx.Insert(Entry[int]{CID: 1, KeyRange: KeyRange{Key: k2, Keybits: n}})
	idx.Insert(Entry[int]{CID: 2, KeyRange: KeyRange{Key: k1 + delta, Keybits: n}})
	idx.Insert(Entry[int]{CID: 3, KeyRange: KeyRange{Key: k1, Keybits: n}})
	idx.Insert(Entry[int]{CID: 4, KeyRange: KeyRange{Key: k0 + delta, Keybits: n}})
	idx.Insert(Entry[int]{CID: 5, KeyRange: KeyRange{Key: k0, Keybits: n}})

	a := assert.New(t)
	a.Equal(6, idx.Len())

	wantCIDs := []int{4, 5, 2, 3, 0, 1}
	for i, want := range wantCIDs {
		a.Equal(want, idx.At(i).CID)
	}
}

func TestChildIndexRemove(t *testing.T) {
	t.Parallel()

	var idx ChildIndex[int]
	idx.Insert(Entry[int]{CID: 1, KeyRange: KeyRange{Key: 10, Keybits: 4}})
	idx.Insert(Entry[int]{CID: 2, KeyRange: KeyRange{Key: 20, Keybits: 4}})
	idx.Insert(Entry[int]{CID: 3, KeyRange: KeyRange{Key: 30, Keybits: 4}})

	idx.Remove(2)
	assert.Equal(t, 2, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		assert.NotEqual(t, 2, idx.At(i).CID)
	}

	// Removing an absent CID is a no-op.
	idx.Remove(99)
	assert.Equal(t, 2, idx.Len())
}

func TestChildIndexFindIndexAndRange(t *testing.T) {
	t.Parallel()

	var idx ChildIndex[int]
	idx.Insert(Entry[int]{CID: 0, KeyRange: KeyRange{Key: 0, Keybits: 4}})    // [0,15]
	idx.Insert(Entry[int]{CID: 1, KeyRange: KeyRange{Key: 16, Keybits: 4}})  // [16,31]
	idx.Insert(Entry[int]{CID: 2, KeyRange: KeyRange{Key: 32, Keybits: 4}})  // [32,47]

	i, ok := idx.FindIndex(16, 16)
	assert.True(t, ok)
	assert.Equal(t, 1, idx.At(i).CID)

	_, ok = idx.FindIndex(48, 63)
	assert.False(t, ok)

	lo, hi, ok := idx.FindRange(0, 47)
	assert.True(t, ok)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 2, hi)
}

func TestChildIndexAllIsSnapshot(t *testing.T) {
	t.Parallel()

	var idx ChildIndex[int]
	idx.Insert(Entry[int]{CID: 1, KeyRange: KeyRange{Key: 1, Keybits: 4}})

	snap := idx.All()
	idx.Insert(Entry[int]{CID: 2, KeyRange: KeyRange{Key: 100, Keybits: 4}})

	assert.Len(t, snap, 1)
	assert.Equal(t, 2, idx.Len())
}
