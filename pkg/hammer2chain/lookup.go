// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"fmt"
	"math"

	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// LookupFlags selects lookup_chain/get_next_chain behavior (spec.md
// §4.6).
type LookupFlags uint32

// LookupAlways forces RESOLVE_ALWAYS instead of RESOLVE_MAYBE for
// every element visited during the walk, per spec.md §4.6.
const LookupAlways LookupFlags = 1 << 0

// maxLookupLoops bounds lookup_chain's iteration, per spec.md §4.6: a
// well-formed tree never approaches this, so hitting it means a
// cycle or a corrupt key range.
const maxLookupLoops = 300_000

func (f LookupFlags) resolveHows() (howMaybe, how hammer2ondisk.ResolveHow) {
	if f&LookupAlways != 0 {
		return hammer2ondisk.ResolveAlways, hammer2ondisk.ResolveAlways
	}
	return hammer2ondisk.ResolveMaybe, hammer2ondisk.ResolveMaybe
}

// LookupChain implements spec.md §4.6's lookup_chain: find the first
// element in [keyBeg, keyEnd] under pcid, ascending to ancestors first
// if pcid's range doesn't enclose the query, then descending through
// indirect blocks until a leaf or exhaustion is found.
//
// It returns (parentCID, foundCID, keyNext). foundCID is CIDNone when
// the range is exhausted under parentCID (spec.md's "∅" result).
func (s *Store) LookupChain(pcid CID, keyBeg, keyEnd uint64, flags LookupFlags) (CID, CID, uint64, error) {
	howMaybe, _ := flags.resolveHows()

	pchain, err := s.Get(pcid)
	if err != nil {
		return CIDNone, CIDNone, 0, err
	}
	for pchain.IsNode() {
		scanBeg := pchain.Bref.Key
		scanEnd := pchain.KeyEnd()
		if keyBeg >= scanBeg && keyEnd <= scanEnd {
			break
		}
		next, err := s.repparentChain(pchain.CID, howMaybe)
		if err != nil {
			return CIDNone, CIDNone, 0, err
		}
		pchain, err = s.Get(next)
		if err != nil {
			return CIDNone, CIDNone, 0, err
		}
	}
	pcid = pchain.CID

	for i := 0; i < maxLookupLoops; i++ {
		newPCID, cid, keyNext, nextKeyBeg, err := s.lookupChainImpl(pcid, keyBeg, keyEnd, flags)
		if err != nil {
			return CIDNone, CIDNone, 0, err
		}
		pcid = newPCID
		keyBeg = nextKeyBeg
		if keyBeg == math.MaxUint64 {
			return pcid, cid, keyNext, nil
		}
	}
	return CIDNone, CIDNone, 0, fmt.Errorf("%w: hammer2chain: LookupChain: exceeded %d iterations", hammer2err.E2BIG, maxLookupLoops)
}

// lookupChainImpl is one descent step: it runs combined_find under
// pcid and either returns a final result (a leaf, or CIDNone when the
// range is exhausted), signaled by nextKeyBeg==math.MaxUint64 meaning
// "done, use cid/keyNext directly", or returns a new parent to loop
// with and a concrete nextKeyBeg: the selected node child to descend
// into, or pcid's own parent to re-ascend to.
func (s *Store) lookupChainImpl(pcid CID, keyBeg, keyEnd uint64, flags LookupFlags) (newPCID, cid CID, keyNext, nextKeyBeg uint64, err error) {
	howMaybe, how := flags.resolveHows()

	pchain, err := s.Get(pcid)
	if err != nil {
		return CIDNone, CIDNone, 0, 0, err
	}
	if pchain.Bref.Type == hammer2ondisk.BlockrefTypeInode {
		if pchain.inode != nil && pchain.inode.Meta.HasDirectData() {
			if err := s.loadChain(pchain, hammer2ondisk.ResolveAlways); err != nil {
				return CIDNone, CIDNone, 0, 0, err
			}
			return pcid, pcid, keyEnd + 1, math.MaxUint64, nil
		}
	}

	xcid, brefIdx, keyNext, err := s.combinedFind(pchain, keyBeg, keyEnd)
	if err != nil {
		return CIDNone, CIDNone, 0, 0, err
	}

	if xcid == CIDNone && brefIdx == noBrefIdx {
		if keyBeg == keyEnd {
			return pcid, CIDNone, keyNext, math.MaxUint64, nil
		}
		if !pchain.IsNode() {
			return pcid, CIDNone, keyNext, math.MaxUint64, nil
		}
		newBeg := pchain.Bref.Key + (uint64(1) << pchain.Bref.Keybits)
		if newBeg == 0 || newBeg > keyEnd {
			return pcid, CIDNone, keyNext, math.MaxUint64, nil
		}
		next, err := s.repparentChain(pchain.CID, howMaybe)
		if err != nil {
			return CIDNone, CIDNone, 0, 0, err
		}
		return next, CIDNone, math.MaxUint64, newBeg, nil
	}

	var selected CID
	if xcid == CIDNone {
		base, err := s.blockrefs(pchain)
		if err != nil {
			return CIDNone, CIDNone, 0, 0, err
		}
		bref := base[brefIdx]
		hw := how
		if bref.Type.IsNode() {
			hw = howMaybe
		}
		selected, err = s.setChain(pcid, bref, hw)
		if err != nil {
			return CIDNone, CIDNone, 0, 0, err
		}
	} else {
		c, err := s.Get(xcid)
		if err != nil {
			return CIDNone, CIDNone, 0, 0, err
		}
		hw := how
		if c.IsNode() {
			hw = howMaybe
		}
		if err := s.loadChain(c, hw); err != nil {
			return CIDNone, CIDNone, 0, 0, err
		}
		selected = xcid
	}

	sc, err := s.Get(selected)
	if err != nil {
		return CIDNone, CIDNone, 0, 0, err
	}
	if sc.IsNode() {
		return selected, CIDNone, math.MaxUint64, keyBeg, nil
	}
	return pcid, selected, keyNext, math.MaxUint64, nil
}

// repparentChain returns c's parent, faulting it per how, per
// spec.md §4.6's repparent_chain. The root (VCHAIN/FCHAIN) has no
// parent and must never reach this call.
func (s *Store) repparentChain(cid CID, how hammer2ondisk.ResolveHow) (CID, error) {
	c, err := s.Get(cid)
	if err != nil {
		return CIDNone, err
	}
	if c.PCID == CIDNone {
		return CIDNone, fmt.Errorf("%w: hammer2chain: repparentChain: cid=%d has no parent", hammer2err.EINVAL, cid)
	}
	pc, err := s.Get(c.PCID)
	if err != nil {
		return CIDNone, err
	}
	if err := s.loadChain(pc, how); err != nil {
		return CIDNone, err
	}
	return c.PCID, nil
}

// GetNextChain implements spec.md §4.6's get_next_chain: advance past
// the previously returned leaf cid (or, if cid is CIDNone, past the
// end of pcid's own key range, continuing under pcid's parent) and
// re-run LookupChain from the new position.
func (s *Store) GetNextChain(pcid, cid CID, keyEnd uint64, flags LookupFlags) (CID, CID, uint64, error) {
	pchain, err := s.Get(pcid)
	if err != nil {
		return CIDNone, CIDNone, 0, err
	}

	var keyBeg uint64
	if cid != CIDNone {
		if cid == pcid {
			return pcid, CIDNone, math.MaxUint64, nil
		}
		c, err := s.Get(cid)
		if err != nil {
			return CIDNone, CIDNone, 0, err
		}
		keyBeg = c.Bref.Key + (uint64(1) << c.Bref.Keybits)
		if keyBeg == 0 || keyBeg > keyEnd {
			return pcid, CIDNone, math.MaxUint64, nil
		}
	} else if !pchain.IsNode() {
		return pcid, CIDNone, math.MaxUint64, nil
	} else {
		keyBeg = pchain.Bref.Key + (uint64(1) << pchain.Bref.Keybits)
		if keyBeg == 0 || keyBeg > keyEnd {
			return pcid, CIDNone, math.MaxUint64, nil
		}
		pcid, err = s.repparentChain(pchain.CID, hammer2ondisk.ResolveMaybe)
		if err != nil {
			return CIDNone, CIDNone, 0, err
		}
	}
	return s.LookupChain(pcid, keyBeg, keyEnd, flags)
}
