// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package hammer2fs

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"

	"github.com/kusumi/hammer2/pkg/hammer2chain"
	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2inode"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
	"github.com/kusumi/hammer2/pkg/hammer2volume"
)

// defaultUdataCacheCapacity bounds the number of decompressed leaves
// the udata cache keeps resident, when the "nodatacache" option is
// not set.
const defaultUdataCacheCapacity = 4096

// bitmapAllocatorCapacity is the fixed ring size for the "bitmap" CID
// allocator policy (spec.md §4.7, §9).
const bitmapAllocatorCapacity = 1 << 20

// FS is a mounted HAMMER2 volume set: the handle every public
// operation in spec.md §6.2 is called against.
type FS struct {
	opt    Options
	vset   *hammer2volume.Set
	Chains *hammer2chain.Store
	Inodes *hammer2inode.Store
}

// Mount implements spec.md §4.10's mount sequence: open and verify
// the volume set, build the synthetic VCHAIN/FCHAIN roots, resolve
// the super-root inode, scan its children for the named PFS, and
// install it as PFS_ROOT. Any failure aborts and releases everything
// already constructed.
func Mount(ctx context.Context, spec string, opt Options) (*FS, error) {
	vset, err := hammer2volume.Open(spec)
	if err != nil {
		return nil, fmt.Errorf("hammer2fs: mount: %w", err)
	}

	alloc, err := newAllocator(opt.CidAlloc)
	if err != nil {
		_ = vset.Close()
		return nil, err
	}

	cacheCap := defaultUdataCacheCapacity
	if opt.NoDataCache {
		cacheCap = 0
	}

	chains := hammer2chain.NewStore(vset, vset.Header, alloc, cacheCap)
	inodes := hammer2inode.NewStore(chains)

	fs := &FS{opt: opt, vset: vset, Chains: chains, Inodes: inodes}

	if err := fs.bootstrap(ctx, vset.Label); err != nil {
		chains.Teardown(ctx, chains.VCHAIN, inodes.RemoveByCID)
		chains.Teardown(ctx, chains.FCHAIN, inodes.RemoveByCID)
		_ = vset.Close()
		return nil, err
	}
	dlog.Infof(ctx, "hammer2fs: mounted %q label=%q", spec, vset.Label)
	return fs, nil
}

func newAllocator(policy string) (hammer2chain.Allocator, error) {
	switch policy {
	case "", "linear":
		return hammer2chain.NewLinearAllocator(), nil
	case "bitmap":
		return hammer2chain.NewBitmapAllocator(bitmapAllocatorCapacity), nil
	default:
		return nil, fmt.Errorf("%w: hammer2fs: unknown cidalloc policy %q", hammer2err.EINVAL, policy)
	}
}

// bootstrap resolves the super-root (spec.md §4.10 steps 5-6) and
// then the named PFS under it (step 7), installing both as the
// reserved SUP_ROOT/PFS_ROOT inums.
func (fs *FS) bootstrap(ctx context.Context, label string) error {
	supCID, err := fs.lookupSuperRoot()
	if err != nil {
		return err
	}
	supChain, err := fs.Chains.Get(supCID)
	if err != nil {
		return err
	}
	supInode := supChain.InodeData()
	if supInode == nil {
		return fmt.Errorf("%w: hammer2fs: bootstrap: super-root chain has no inode data", hammer2err.EIO)
	}
	fs.Inodes.Put(hammer2ondisk.InumSupRoot, supInode.Meta, supCID)
	dlog.Debugf(ctx, "hammer2fs: super-root installed cid=%d", supCID)

	if err := fs.checkSuperRootChildren(supCID); err != nil {
		return err
	}

	pfsCID, err := fs.findPFS(supCID, label)
	if err != nil {
		return err
	}
	pfsChain, err := fs.Chains.Get(pfsCID)
	if err != nil {
		return err
	}
	pfsInode := pfsChain.InodeData()
	if pfsInode == nil {
		return fmt.Errorf("%w: hammer2fs: bootstrap: PFS %q chain has no inode data", hammer2err.EIO, label)
	}
	fs.Inodes.Put(hammer2ondisk.InumPFSRoot, pfsInode.Meta, pfsCID)
	dlog.Debugf(ctx, "hammer2fs: PFS %q installed cid=%d", label, pfsCID)
	return nil
}

// lookupSuperRoot walks VCHAIN for SROOT_KEY (spec.md §4.10 step 5).
func (fs *FS) lookupSuperRoot() (hammer2chain.CID, error) {
	_, cid, _, err := fs.Chains.LookupChain(
		fs.Chains.VCHAIN, hammer2ondisk.SRootKey, hammer2ondisk.SRootKey, hammer2chain.LookupAlways)
	if err != nil {
		return hammer2chain.CIDNone, err
	}
	if cid == hammer2chain.CIDNone {
		return hammer2chain.CIDNone, fmt.Errorf("%w: hammer2fs: mount: super-root not found", hammer2err.ENOENT)
	}
	c, err := fs.Chains.Get(cid)
	if err != nil {
		return hammer2chain.CIDNone, err
	}
	if c.Bref.Type != hammer2ondisk.BlockrefTypeInode {
		return hammer2chain.CIDNone, fmt.Errorf(
			"%w: hammer2fs: mount: super-root blockref has type %s, want INODE", hammer2err.EINVAL, c.Bref.Type)
	}
	return cid, nil
}

// checkSuperRootChildren implements spec.md §4.10 step 6: every
// direct child of the super-root must itself be an INODE (a PFS
// root); anything else fails the mount.
func (fs *FS) checkSuperRootChildren(supCID hammer2chain.CID) error {
	lkey := uint64(2) | hammer2ondisk.DirhashVisible
	pcid, cid, _, err := fs.Chains.LookupChain(supCID, lkey, hammer2ondisk.KeyMax, 0)
	if err != nil {
		return err
	}
	for cid != hammer2chain.CIDNone {
		c, err := fs.Chains.Get(cid)
		if err != nil {
			return err
		}
		if c.Bref.Type != hammer2ondisk.BlockrefTypeInode {
			return fmt.Errorf(
				"%w: hammer2fs: mount: super-root child has non-INODE type %s", hammer2err.EINVAL, c.Bref.Type)
		}
		pcid, cid, _, err = fs.Chains.GetNextChain(pcid, cid, hammer2ondisk.KeyMax, 0)
		if err != nil {
			return err
		}
	}
	return nil
}

// findPFS implements spec.md §4.10 step 7: search the super-root's
// dirhash(label) bucket for an INODE whose filename equals label.
func (fs *FS) findPFS(supCID hammer2chain.CID, label string) (hammer2chain.CID, error) {
	lhc := hammer2ondisk.Dirhash([]byte(label))
	keyEnd := lhc | hammer2ondisk.LOMask

	pcid, cid, _, err := fs.Chains.LookupChain(supCID, lhc, keyEnd, hammer2chain.LookupAlways)
	if err != nil {
		return hammer2chain.CIDNone, err
	}
	for cid != hammer2chain.CIDNone {
		c, err := fs.Chains.Get(cid)
		if err != nil {
			return hammer2chain.CIDNone, err
		}
		if c.Bref.Type == hammer2ondisk.BlockrefTypeInode && fs.Chains.MatchName(c, label) {
			return cid, nil
		}
		pcid, cid, _, err = fs.Chains.GetNextChain(pcid, cid, keyEnd, hammer2chain.LookupAlways)
		if err != nil {
			return hammer2chain.CIDNone, err
		}
	}
	return hammer2chain.CIDNone, fmt.Errorf("%w: hammer2fs: mount: no PFS labelled %q", hammer2err.ENOENT, label)
}

// Unmount implements spec.md §4.10's unmount sequence: post-order
// tear down the chain graph from VCHAIN and FCHAIN, removing each
// chain's inode entry from nmap as it goes, assert the arena is
// empty, log the CID allocator's final stats, and close the volume
// set's file descriptors.
func (fs *FS) Unmount(ctx context.Context) error {
	fs.Chains.Teardown(ctx, fs.Chains.VCHAIN, fs.Inodes.RemoveByCID)
	fs.Chains.Teardown(ctx, fs.Chains.FCHAIN, fs.Inodes.RemoveByCID)
	if n := fs.Chains.Len(); n != 0 {
		dlog.Errorf(ctx, "hammer2fs: unmount: %d chain(s) still resident after teardown", n)
	}
	stats := fs.Chains.Stats()
	dlog.Infof(ctx, "hammer2fs: unmount: cid allocator: policy=%s allocated=%d highwater=%d",
		stats.Policy, stats.Allocated, stats.HighWater)
	return fs.vset.Close()
}
