// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"github.com/kusumi/hammer2/pkg/hammer2media"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// blockrefs returns (and caches) the on-disk blockref children of c,
// per the typed-view rule of spec.md §4.2.
func (s *Store) blockrefs(c *Chain) ([]hammer2ondisk.Blockref, error) {
	if c.blockrefScanned {
		return c.blockrefCache, nil
	}
	brefs, err := hammer2media.ChildBlockrefs(c.Bref.Type, c.inode, c.rawData, &s.header)
	if err != nil {
		return nil, err
	}
	c.blockrefCache = brefs
	c.blockrefScanned = true
	c.liveZero = len(brefs)
	for i, br := range brefs {
		if br.IsEmpty() {
			c.liveZero = i
			break
		}
	}
	c.liveCount = 0
	for _, br := range brefs {
		if !br.IsEmpty() {
			c.liveCount++
		}
	}
	return brefs, nil
}

// findBlockref implements spec.md §4.4's find_blockref: it maintains
// c.cacheIndex as a hint, walks backward while entries are EMPTY or
// begin above keyBeg, then forward to the first non-EMPTY entry whose
// range meets or precedes keyBeg. Returns the found index (or
// len(base) if exhausted) and the possibly-narrowed keyNext.
func (s *Store) findBlockref(c *Chain, keyNext, keyBeg uint64) (int, uint64, error) {
	base, err := s.blockrefs(c)
	if err != nil {
		return 0, keyNext, err
	}
	if len(base) == 0 {
		return 0, keyNext, nil
	}
	i := c.cacheIndex
	if i >= len(base) {
		i = len(base) - 1
	}
	if i < 0 {
		i = 0
	}
	for i > 0 && (base[i].IsEmpty() || base[i].Key > keyBeg) {
		i--
	}
	for i < len(base) && (base[i].IsEmpty() || base[i].KeyEnd() < keyBeg) {
		i++
	}
	c.cacheIndex = i
	if i >= len(base) {
		return len(base), keyNext, nil
	}
	end := base[i].Key + (uint64(1) << base[i].Keybits)
	if end > base[i].Key && end < keyNext {
		keyNext = end
	}
	return i, keyNext, nil
}
