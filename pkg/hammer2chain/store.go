// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"

	"github.com/kusumi/hammer2/lib/containers"
	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// volumeSet is the subset of hammer2volume.Set's behavior the chain
// store needs to fault blockref payloads. Kept as an interface so
// chain-store tests can swap in an in-memory fake volume set.
type volumeSet interface {
	ReadMedia(bref *hammer2ondisk.Blockref, bytes int) ([]byte, error)
}

// Store owns every Chain reachable from one mounted volume set: the
// "cmap" arena of spec.md's Ownership section. It is exclusively
// owned by the mount; CID hands out identifiers but never itself
// references chain memory.
type Store struct {
	vset   volumeSet
	header hammer2ondisk.VolumeData

	cmap  map[CID]*Chain
	alloc Allocator
	udata *containers.UdataCache[CID]

	VCHAIN CID
	FCHAIN CID
}

// NewStore builds the chain store and its two synthetic roots,
// VCHAIN (type VOLUME) and FCHAIN (type FREEMAP), directly from the
// already-selected newest volume header (spec.md §4.10 step 4). Both
// are marked resident immediately: they are never faulted through
// set_chain/load_chain, per spec.md §4.7.
func NewStore(vset volumeSet, header hammer2ondisk.VolumeData, alloc Allocator, udataCacheCapacity int) *Store {
	s := &Store{
		vset:   vset,
		header: header,
		cmap:   make(map[CID]*Chain),
		alloc:  alloc,
		udata:  containers.NewUdataCache[CID](udataCacheCapacity),
		VCHAIN: CIDVolume,
		FCHAIN: CIDFreemap,
	}
	s.cmap[CIDVolume] = &Chain{
		CID: CIDVolume, PCID: CIDNone,
		Bref:     hammer2ondisk.Blockref{Type: hammer2ondisk.BlockrefTypeVolume, Key: 0, Keybits: 64},
		resident: true,
	}
	s.cmap[CIDFreemap] = &Chain{
		CID: CIDFreemap, PCID: CIDNone,
		Bref:     hammer2ondisk.Blockref{Type: hammer2ondisk.BlockrefTypeFreemap, Key: 0, Keybits: 64},
		resident: true,
	}
	return s
}

// Get returns the chain for cid, or an error if it is not resident in
// the arena (e.g. a stale CID from before an unmount).
func (s *Store) Get(cid CID) (*Chain, error) {
	c, ok := s.cmap[cid]
	if !ok {
		return nil, fmt.Errorf("%w: hammer2chain: no such chain cid=%d", hammer2err.EINVAL, cid)
	}
	return c, nil
}

// Len reports how many chains the arena currently holds, used by
// unmount's "assert cmap is empty" bookkeeping.
func (s *Store) Len() int { return len(s.cmap) }

// Load faults cid's payload per how, for callers outside this package
// that already hold a CID (e.g. hammer2inode's get_inode_chain).
func (s *Store) Load(cid CID, how hammer2ondisk.ResolveHow) error {
	c, err := s.Get(cid)
	if err != nil {
		return err
	}
	return s.loadChain(c, how)
}

// Stats returns the CID allocator's bookkeeping for unmount logging
// (spec.md §4.10).
func (s *Store) Stats() AllocatorStats { return s.alloc.Stats() }

// Header returns the volume header this store was built from, for
// hammer2inode's statfs.
func (s *Store) Header() hammer2ondisk.VolumeData { return s.header }

// Teardown removes every chain reachable from root in post-order
// (children before parent), per spec.md §4.10's unmount sequence. For
// each chain it evicts, onEvict is called before the chain itself is
// dropped, so a caller holding a CID-keyed side table (nmap) can
// remove its entry in lockstep rather than after the fact; onEvict may
// be nil. It is idempotent: chains already removed are skipped.
func (s *Store) Teardown(ctx context.Context, root CID, onEvict func(CID)) {
	c, ok := s.cmap[root]
	if !ok {
		return
	}
	for _, e := range c.children.All() {
		s.Teardown(ctx, e.CID, onEvict)
	}
	if onEvict != nil {
		onEvict(root)
	}
	delete(s.cmap, root)
	s.udata.Remove(root)
	s.alloc.Free(root)
	dlog.Debugf(ctx, "hammer2chain: evicted cid=%d", root)
}
