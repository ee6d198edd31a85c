// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hammer2chain is the chain subsystem: the lazily
// materialized in-memory projection of HAMMER2's on-disk
// copy-on-write B+-tree of blockrefs (spec.md §3, §4.3-§4.7).
package hammer2chain

import (
	"github.com/kusumi/hammer2/lib/containers"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// Chain is one node of the in-memory projection: it was either
// constructed synthetically at mount (VCHAIN/FCHAIN) or faulted in
// by set_chain from a parent's blockref (spec.md "Lifecycle").
type Chain struct {
	CID  CID
	PCID CID
	Bref hammer2ondisk.Blockref

	// resident is true once load_chain has successfully faulted this
	// chain's payload. Node-type chains (INDIRECT/FREEMAP_NODE/INODE
	// with a blockset tail) resident here means rawData holds the
	// on-disk blockref array/inode block; DATA/DIRENT leaves resident
	// here means their decompressed bytes were put into udata (owned
	// by the store's cache, see store.go). The cache may be disabled
	// or may have evicted them; ReadData then reads them again.
	resident bool
	rawData  []byte // decoded on-disk structure bytes (VolumeData/InodeData/blockref array), for node types
	inode    *hammer2ondisk.InodeData

	// children indexes chains that have themselves been faulted under
	// this one, keyed by CID and range -- the in-memory half of
	// combined_find (spec.md §4.3).
	children containers.ChildIndex[CID]

	// blockref-array scan state (spec.md §4.4), valid once resident
	// and the type is a node type.
	blockrefScanned bool
	blockrefCache   []hammer2ondisk.Blockref
	liveZero        int
	liveCount       int
	cacheIndex      int
}

// IsNode reports whether this chain's type makes it an interior node
// of the tree (spec.md GLOSSARY).
func (c *Chain) IsNode() bool { return c.Bref.Type.IsNode() }

// KeyBeg / KeyEnd are this chain's subtree key range.
func (c *Chain) KeyBeg() uint64 { return c.Bref.Key }
func (c *Chain) KeyEnd() uint64 { return c.Bref.KeyEnd() }

// Encloses reports whether this chain's key range fully covers
// [beg, end].
func (c *Chain) Encloses(beg, end uint64) bool {
	return c.Bref.Key <= beg && end <= c.KeyEnd()
}

// InodeData returns the decoded inode block, valid only when
// Bref.Type == BlockrefTypeInode and the chain is resident.
func (c *Chain) InodeData() *hammer2ondisk.InodeData { return c.inode }

// RawData returns the decoded on-disk bytes backing a node-type
// chain (blockref array, or VolumeData/InodeData's own bytes).
func (c *Chain) RawData() []byte { return c.rawData }

// Resident reports whether load_chain has faulted this chain's data.
func (c *Chain) Resident() bool { return c.resident }

// Children returns a snapshot of c's in-memory child entries, for
// diagnostic callers outside this package (e.g. hammer2fs's chain
// dump) that need to walk whatever is already resident without
// triggering a fault.
func (c *Chain) Children() []containers.Entry[CID] { return c.children.All() }
