// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"fmt"

	"github.com/kusumi/hammer2/lib/containers"
	"github.com/kusumi/hammer2/pkg/hammer2err"
)

// noBrefIdx is the "no on-disk blockref selected" sentinel returned
// alongside a CID by combinedFind (spec.md §4.5's "∅" for the
// blockref half of the result).
const noBrefIdx = -1

// findChild implements spec.md §4.3's find_child: it picks the single
// best in-memory child overlapping [keyBeg, keyEnd], breaking ties by
// smallest key, and narrows keyNext to the minimum of its current
// value and every observed child's end+1 (so the caller's iterator
// cannot skip unvisited space). Two distinct children with the same
// key that both bracket keyBeg is an illegal-overlap condition.
func findChild(idx *containers.ChildIndex[CID], keyBeg, keyEnd, keyNext uint64) (cid CID, key uint64, newKeyNext uint64, found bool, err error) {
	newKeyNext = keyNext
	bestKey := ^uint64(0)
	for _, e := range idx.All() {
		end := e.End()
		if end != ^uint64(0) && end+1 < newKeyNext && end+1 > e.Key {
			newKeyNext = end + 1
		}
		if e.Key > keyEnd || end < keyBeg {
			continue
		}
		switch {
		case !found:
			cid, key, found = e.CID, e.Key, true
			bestKey = e.Key
		case e.Key == bestKey:
			return CIDNone, 0, newKeyNext, false, fmt.Errorf(
				"%w: hammer2chain: find_child: two children with key %d both bracket %d", hammer2err.EINVAL, e.Key, keyBeg)
		case e.Key < bestKey:
			cid, key, bestKey = e.CID, e.Key, e.Key
		}
	}
	return cid, key, newKeyNext, found, nil
}

// combinedFind implements spec.md §4.5: reconciles find_blockref and
// find_child over a parent chain's single search range. It returns
// either an in-memory child CID (with brefIdx == noBrefIdx) or an
// on-disk blockref index (with cid == CIDNone), and the narrowed
// keyNext used by the caller when the search is exhausted.
//
// This is a close translation of the original reader's
// combined_find_chain, kept because its left-flush/tie-breaking rules
// are easy to get subtly wrong when re-derived from prose alone.
func (s *Store) combinedFind(parent *Chain, keyBeg, keyEnd uint64) (cid CID, brefIdx int, keyNext uint64, err error) {
	i, keyNext, err := s.findBlockref(parent, keyEnd+1, keyBeg)
	if err != nil {
		return CIDNone, noBrefIdx, keyNext, err
	}
	base, err := s.blockrefs(parent)
	if err != nil {
		return CIDNone, noBrefIdx, keyNext, err
	}

	xCID, xKey, keyNext, haveChild, err := findChild(&parent.children, keyBeg, keyEnd, keyNext)
	if err != nil {
		return CIDNone, noBrefIdx, keyNext, err
	}

	if haveChild {
		if i == len(base) {
			// Only the in-memory chain matched.
			if xKey > keyEnd {
				return CIDNone, noBrefIdx, keyNext, nil
			}
			return xCID, noBrefIdx, keyNext, nil
		}
		bKey := base[i].Key
		if (xKey <= keyBeg && bKey <= keyBeg) || xKey == bKey {
			// Both flush against the left edge, or exactly the same
			// key: the in-memory chain must have been loaded from
			// this very blockref, so it wins.
			if xKey > keyEnd {
				return CIDNone, noBrefIdx, keyNext, nil
			}
			return xCID, noBrefIdx, keyNext, nil
		}
		if xKey < bKey {
			return xCID, noBrefIdx, keyNext, nil
		}
		return CIDNone, i, keyNext, nil
	}

	if i == len(base) {
		return CIDNone, noBrefIdx, keyNext, nil
	}
	if base[i].Key > keyEnd {
		return CIDNone, noBrefIdx, keyNext, nil
	}
	return CIDNone, i, keyNext, nil
}
