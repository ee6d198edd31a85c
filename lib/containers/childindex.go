// Copyright (C) 2022  Luke Shumaker <lukeshu@lukeshu.com>
// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

import "sort"

// KeyRange is a half-open-by-radix key range: it covers
// [Key, Key+2^Keybits). It is the shape shared by a Chain's child
// entries and by an on-disk Blockref, which is why the child index
// is generic over it instead of being specialized to one or the
// other.
type KeyRange struct {
	Key     uint64
	Keybits uint8
}

// End returns the inclusive upper bound of the range, saturating at
// u64::MAX instead of wrapping when Keybits==64.
func (r KeyRange) End() uint64 {
	if r.Keybits >= 64 {
		return ^uint64(0)
	}
	delta := (uint64(1) << r.Keybits) - 1
	end := r.Key + delta
	if end < r.Key {
		return ^uint64(0)
	}
	return end
}

// CompareRange implements the three-way range comparator of spec
// §4.3: Less if x is wholly left of y, Greater if wholly right,
// Equal (0) on any overlap -- including a mere boundary touch, which
// is deliberately folded into Equal here. Nothing in this package
// rejects overlapping entries; the chain store's findChild reports
// two equal-keyed children in one search range as illegal overlap.
func CompareRange(x, y KeyRange) int {
	switch {
	case x.End() < y.Key:
		return -1
	case x.Key > y.End():
		return 1
	default:
		return 0
	}
}

// Entry is one (child CID, key range) tuple held by a ChildIndex.
type Entry[C comparable] struct {
	CID C
	KeyRange
}

// ChildIndex is the radix-keyed, range-sorted child list described in
// spec §4.3: insertion is append-then-stable-sort, removal is
// swap-remove-then-stable-sort, and lookups binary-search the range
// comparator above. It is used both by the chain store (CID children)
// and could be reused for any other range-keyed sibling set.
type ChildIndex[C comparable] struct {
	entries []Entry[C]
}

func (idx *ChildIndex[C]) Len() int { return len(idx.entries) }

func (idx *ChildIndex[C]) At(i int) Entry[C] { return idx.entries[i] }

// Insert appends the entry then stable-sorts the slice by range, per
// spec §4.3. Overlap with an existing entry is not rejected here --
// detecting it is the caller's job (find_child's illegal-overlap
// check), since a momentarily-overlapping state can be a valid
// intermediate step during a reparent.
func (idx *ChildIndex[C]) Insert(e Entry[C]) {
	idx.entries = append(idx.entries, e)
	idx.stableSort()
}

// Remove deletes the entry with the given CID via swap-remove then
// stable-sort, per spec §4.3. It is a no-op if cid is not present.
func (idx *ChildIndex[C]) Remove(cid C) {
	for i, e := range idx.entries {
		if e.CID == cid {
			last := len(idx.entries) - 1
			idx.entries[i] = idx.entries[last]
			idx.entries = idx.entries[:last]
			idx.stableSort()
			return
		}
	}
}

// stableSort orders entries with the same CompareRange used by
// FindIndex/FindRange, so storage order and search order never
// disagree. Two entries that CompareRange calls Equal (an overlap, or
// a mere boundary touch) are left in their current relative order
// rather than forced into key order: for a valid tree this never
// happens (siblings never overlap per spec.md's child-index law), and
// when it does happen it is the overlap itself -- not some derived
// ordering of the offending entries -- that findChild flags as
// illegal.
func (idx *ChildIndex[C]) stableSort() {
	sort.SliceStable(idx.entries, func(i, j int) bool {
		return CompareRange(idx.entries[i].KeyRange, idx.entries[j].KeyRange) < 0
	})
}

// FindIndex binary-searches for an entry overlapping [beg, end],
// returning its index, or false if nothing overlaps.
func (idx *ChildIndex[C]) FindIndex(beg, end uint64) (int, bool) {
	// Represent [beg,end] directly rather than via Keybits (which
	// cannot express an arbitrary inclusive range); compare by hand.
	lo, hi := 0, len(idx.entries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		e := idx.entries[mid].KeyRange
		switch {
		case e.End() < beg:
			lo = mid + 1
		case e.Key > end:
			hi = mid - 1
		default:
			return mid, true
		}
	}
	return 0, false
}

// FindRange expands around a hit returned by FindIndex to cover every
// contiguous entry whose range overlaps [beg, end] -- spec §4.3's
// "find_child_range": this is how duplicate-keyed sibling sets (hash
// bucket collisions among dirents sharing the top 32 dirhash bits)
// are enumerated as one window.
func (idx *ChildIndex[C]) FindRange(beg, end uint64) (lo, hi int, ok bool) {
	i, found := idx.FindIndex(beg, end)
	if !found {
		return 0, 0, false
	}
	lo, hi = i, i
	for lo > 0 && CompareRange(idx.entries[lo-1].KeyRange, KeyRange{Key: beg, Keybits: 0}) >= 0 &&
		idx.entries[lo-1].End() >= beg {
		lo--
	}
	for hi+1 < len(idx.entries) && idx.entries[hi+1].Key <= end {
		hi++
	}
	return lo, hi, true
}

// All returns a snapshot slice of the entries in range order. The
// combined-find algorithm (spec §4.5) needs an immutable snapshot of
// both the child list and the blockref array before reconciling them,
// so that neither sub-search observes a mutation made by the other.
func (idx *ChildIndex[C]) All() []Entry[C] {
	out := make([]Entry[C], len(idx.entries))
	copy(out, idx.entries)
	return out
}
