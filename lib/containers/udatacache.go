// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

import lru "github.com/hashicorp/golang-lru/v2"

// UdataCache caches a chain's decompressed, user-facing bytes (the
// Chain.udata field of spec §3) keyed by CID. The teacher's
// lib/containers/lrucache.go hand-rolls a pinning LRU; the chain
// store has no equivalent pinning requirement (chains are never
// evicted out from under a live reference, per spec's ownership
// model), so a plain bounded LRU from the ecosystem is a better fit
// and replaces the hand-rolled one.
//
// A nil *UdataCache (returned when the "nodatacache" option is set)
// is valid and always misses, forcing every read to refault -- this
// is what makes "nodatacache" work without a second code path.
type UdataCache[C comparable] struct {
	inner *lru.Cache[C, []byte]
}

// NewUdataCache builds a cache with the given entry capacity, or
// returns nil if capacity is 0 (the "nodatacache" option).
func NewUdataCache[C comparable](capacity int) *UdataCache[C] {
	if capacity <= 0 {
		return nil
	}
	c, err := lru.New[C, []byte](capacity)
	if err != nil {
		panic(err) // only returns an error for capacity<=0, already excluded
	}
	return &UdataCache[C]{inner: c}
}

func (c *UdataCache[C]) Get(cid C) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.inner.Get(cid)
}

func (c *UdataCache[C]) Put(cid C, data []byte) {
	if c == nil {
		return
	}
	c.inner.Add(cid, data)
}

func (c *UdataCache[C]) Remove(cid C) {
	if c == nil {
		return
	}
	c.inner.Remove(cid)
}
