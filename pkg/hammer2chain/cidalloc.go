// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"fmt"

	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// CID identifies a Chain within one mount's arena. Values below
// CIDFirst are reserved (spec.md §3): CIDNone marks "no chain",
// CIDVolume/CIDFreemap name the two synthetic roots installed at
// mount.
type CID uint64

const (
	CIDNone   = CID(hammer2ondisk.CIDNone)
	CIDVolume = CID(hammer2ondisk.CIDVolume)
	CIDFreemap = CID(hammer2ondisk.CIDFreemap)
	cidFirst  = CID(hammer2ondisk.CIDFirst)
)

// Allocator hands out CIDs for newly faulted chains (spec.md §4.7).
// It never references chain memory itself -- that discipline is
// spelled out in spec.md's Ownership section -- it only tracks which
// numbers are in use.
type Allocator interface {
	Alloc() (CID, error)
	Free(CID)
	Stats() AllocatorStats
}

// AllocatorStats is logged at unmount (spec.md §4.10).
type AllocatorStats struct {
	Policy    string
	Allocated int
	HighWater CID
}

// LinearAllocator is a bump-pointer policy: CIDs are handed out in
// increasing order starting at cidFirst and are never reused. Freeing
// only updates the in-use count for Stats(); it does not make the
// freed CID available again, since a monotonic allocator has nothing
// to recycle.
type LinearAllocator struct {
	next CID
	live int
}

func NewLinearAllocator() *LinearAllocator {
	return &LinearAllocator{next: cidFirst}
}

func (a *LinearAllocator) Alloc() (CID, error) {
	if a.next == 0 { // wrapped past u64::MAX
		return CIDNone, fmt.Errorf("%w: hammer2chain: linear CID allocator exhausted", hammer2err.ENOSPC)
	}
	cid := a.next
	a.next++
	a.live++
	return cid, nil
}

func (a *LinearAllocator) Free(CID) {
	if a.live > 0 {
		a.live--
	}
}

func (a *LinearAllocator) Stats() AllocatorStats {
	return AllocatorStats{Policy: "linear", Allocated: a.live, HighWater: a.next - 1}
}

// BitmapAllocator is a fixed-size ring that recycles freed CIDs: it
// holds a capacity-bounded set of in-use CIDs and a free list of
// previously-allocated-then-freed CIDs, so a long-lived mount with
// churn through its cache doesn't grow cmap's key space unbounded.
type BitmapAllocator struct {
	capacity int
	next     CID
	free     []CID
	live     int
}

func NewBitmapAllocator(capacity int) *BitmapAllocator {
	return &BitmapAllocator{capacity: capacity, next: cidFirst}
}

func (a *BitmapAllocator) Alloc() (CID, error) {
	if n := len(a.free); n > 0 {
		cid := a.free[n-1]
		a.free = a.free[:n-1]
		a.live++
		return cid, nil
	}
	if a.live >= a.capacity {
		return CIDNone, fmt.Errorf("%w: hammer2chain: bitmap CID allocator exhausted (capacity %d)", hammer2err.ENOSPC, a.capacity)
	}
	cid := a.next
	a.next++
	a.live++
	return cid, nil
}

func (a *BitmapAllocator) Free(cid CID) {
	if a.live > 0 {
		a.live--
	}
	a.free = append(a.free, cid)
}

func (a *BitmapAllocator) Stats() AllocatorStats {
	return AllocatorStats{Policy: "bitmap", Allocated: a.live, HighWater: a.next - 1}
}
