// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2chain

import (
	"fmt"

	"github.com/kusumi/hammer2/lib/containers"
	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2media"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// setChain allocates a CID for bref under pcid, links it into the
// parent's child index, and faults it per how. On failure the
// half-built chain is unwound: no partially-registered CID is left
// behind (spec.md §4.7's "set_chain" step of lookup/get_next).
//
// This mirrors the original reader's set_chain/load_chain pairing
// (original_source/src/hammer2.rs lines ~207-277): allocate, link,
// load, and on load failure free the CID and unlink again.
func (s *Store) setChain(pcid CID, bref hammer2ondisk.Blockref, how hammer2ondisk.ResolveHow) (CID, error) {
	parent, err := s.Get(pcid)
	if err != nil {
		return CIDNone, err
	}
	cid, err := s.alloc.Alloc()
	if err != nil {
		return CIDNone, err
	}
	c := &Chain{CID: cid, PCID: pcid, Bref: bref}
	s.cmap[cid] = c
	parent.children.Insert(containers.Entry[CID]{
		CID:      cid,
		KeyRange: containers.KeyRange{Key: bref.Key, Keybits: bref.Keybits},
	})
	if err := s.loadChain(c, how); err != nil {
		parent.children.Remove(cid)
		delete(s.cmap, cid)
		s.alloc.Free(cid)
		return CIDNone, err
	}
	return cid, nil
}

// loadChain faults c's payload from media according to how (spec.md
// §4.7, §9): RESOLVE_MAYBE leaves DATA leaves unfaulted (callers
// touching their content call it again with RESOLVE_ALWAYS),
// RESOLVE_ALWAYS faults everything including leaves.
func (s *Store) loadChain(c *Chain, how hammer2ondisk.ResolveHow) error {
	norm, ok := how.Normalize()
	if !ok {
		return fmt.Errorf("%w: hammer2chain: loadChain: invalid resolve flags %d", hammer2err.EINVAL, how)
	}
	if c.resident {
		return nil
	}
	switch c.Bref.Type {
	case hammer2ondisk.BlockrefTypeFreemap, hammer2ondisk.BlockrefTypeVolume:
		return fmt.Errorf("%w: hammer2chain: loadChain: %s is a synthetic root, never faulted", hammer2err.EINVAL, c.Bref.Type)
	case hammer2ondisk.BlockrefTypeData:
		if norm == hammer2ondisk.ResolveMaybe {
			return nil
		}
	}
	if !c.Bref.HasExternalData() {
		// Radix 0: payload lives in Bref.Embed/Check, nothing to fault
		// from media. An INODE blockref cannot hold the 1024-byte inode
		// record, so an INODE without external data is rejected.
		if c.Bref.Type == hammer2ondisk.BlockrefTypeInode {
			return fmt.Errorf("%w: hammer2chain: loadChain: INODE blockref has no external data", hammer2err.EINVAL)
		}
		c.resident = true
		return nil
	}

	raw, err := s.vset.ReadMedia(&c.Bref, int(c.Bref.DataBytes()))
	if err != nil {
		return err
	}
	if err := hammer2media.VerifyChecksum(&c.Bref, raw); err != nil {
		return err
	}

	switch c.Bref.Type {
	case hammer2ondisk.BlockrefTypeInode:
		plain, err := hammer2media.Decompress(&c.Bref, raw, hammer2ondisk.InodeDataSize)
		if err != nil {
			return err
		}
		inode, err := hammer2ondisk.DecodeInodeData(plain)
		if err != nil {
			return fmt.Errorf("%w: hammer2chain: loadChain: %v", hammer2err.EIO, err)
		}
		c.inode = &inode
		c.rawData = plain
	case hammer2ondisk.BlockrefTypeIndirect, hammer2ondisk.BlockrefTypeFreemapNode:
		plain, err := hammer2media.Decompress(&c.Bref, raw, len(raw))
		if err != nil {
			return err
		}
		c.rawData = plain
	case hammer2ondisk.BlockrefTypeData, hammer2ondisk.BlockrefTypeDirent:
		want := max(int(c.Bref.KeyEnd()-c.Bref.Key+1), len(raw))
		plain, err := hammer2media.Decompress(&c.Bref, raw, want)
		if err != nil {
			return err
		}
		s.udata.Put(c.CID, plain)
	default:
		return fmt.Errorf("%w: hammer2chain: loadChain: unsupported blockref type %s", hammer2err.EINVAL, c.Bref.Type)
	}
	c.resident = true
	return nil
}

// ReadData returns the decompressed leaf payload for a DATA/DIRENT
// chain, reading it from media whenever the udata cache does not hold
// it (spec.md §4.9's pread path).
func (s *Store) ReadData(cid CID) ([]byte, error) {
	c, err := s.Get(cid)
	if err != nil {
		return nil, err
	}
	if data, ok := s.udata.Get(cid); ok {
		return data, nil
	}
	// A leaf keeps its payload only in the udata cache, so a miss
	// (caching disabled, or the entry evicted) reads it again.
	raw, err := s.vset.ReadMedia(&c.Bref, int(c.Bref.DataBytes()))
	if err == nil {
		err = hammer2media.VerifyChecksum(&c.Bref, raw)
	}
	if err != nil {
		return nil, err
	}
	data, err := hammer2media.Decompress(&c.Bref, raw, max(int(c.Bref.KeyEnd()-c.Bref.Key+1), len(raw)))
	if err == nil {
		s.udata.Put(cid, data)
	}
	return data, err
}
