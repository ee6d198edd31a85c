// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hammer2inode is the inode facade of spec.md §4.8: it keeps
// the inum->chain map (nmap) and builds name resolution, directory
// listing, and file I/O on top of hammer2chain's lookup/get_next walk.
package hammer2inode

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kusumi/hammer2/pkg/hammer2chain"
	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// Inode is nmap's entry: the inode metadata last seen, paired with
// the chain that produced it (spec.md §3's "Inode" struct).
type Inode struct {
	Meta hammer2ondisk.InodeMeta
	CID  hammer2chain.CID
}

// Store owns nmap and drives every public operation in spec.md §6.2
// over a mounted chain store.
type Store struct {
	chains *hammer2chain.Store
	nmap   map[uint64]*Inode
	byCID  map[hammer2chain.CID]uint64
}

// NewStore builds an empty inode facade over an already-mounted chain
// store.
func NewStore(chains *hammer2chain.Store) *Store {
	return &Store{
		chains: chains,
		nmap:   make(map[uint64]*Inode),
		byCID:  make(map[hammer2chain.CID]uint64),
	}
}

// Chains exposes the underlying chain store, for mount bootstrap code
// that needs to install synthetic inodes (SUP_ROOT/PFS_ROOT).
func (s *Store) Chains() *hammer2chain.Store { return s.chains }

// Put registers an inode directly at inum with cid, overwriting any
// existing entry. Used by mount bootstrap for SUP_ROOT/PFS_ROOT.
func (s *Store) Put(inum uint64, meta hammer2ondisk.InodeMeta, cid hammer2chain.CID) {
	s.nmap[inum] = &Inode{Meta: meta, CID: cid}
	s.byCID[cid] = inum
}

// RemoveByCID deletes nmap's entry for cid, if any. This is the
// inode-facade half of spec.md §4.10's unmount sequence: as the chain
// store tears down cid's chain, the inode that pointed at it must be
// evicted from nmap in the same step, or a post-unmount GetInode could
// return an Inode whose CID has since been freed and reassigned by the
// CID allocator.
func (s *Store) RemoveByCID(cid hammer2chain.CID) {
	inum, ok := s.byCID[cid]
	if !ok {
		return
	}
	delete(s.nmap, inum)
	delete(s.byCID, cid)
}

// GetInode returns the nmap entry for inum.
func (s *Store) GetInode(inum uint64) (*Inode, error) {
	ip, ok := s.nmap[inum]
	if !ok {
		return nil, fmt.Errorf("%w: hammer2inode: no such inum %d", hammer2err.EINVAL, inum)
	}
	return ip, nil
}

// SetInodeFromChain registers (or finds already-registered) the inode
// named by c's InodeData, mirroring the original reader's
// set_inode_from_xop: returns (inum, alreadyExisted).
func (s *Store) SetInodeFromChain(cid hammer2chain.CID) (uint64, bool, error) {
	c, err := s.chains.Get(cid)
	if err != nil {
		return 0, false, err
	}
	ipdata := c.InodeData()
	if ipdata == nil {
		return 0, false, fmt.Errorf("%w: hammer2inode: SetInodeFromChain: chain has no inode data", hammer2err.EINVAL)
	}
	inum := ipdata.Meta.Inum
	if _, ok := s.nmap[inum]; ok {
		return inum, true, nil
	}
	s.nmap[inum] = &Inode{Meta: ipdata.Meta, CID: cid}
	s.byCID[cid] = inum
	return inum, false, nil
}

// GetInodeChain returns inum's chain, faulted per how.
func (s *Store) GetInodeChain(inum uint64, how hammer2ondisk.ResolveHow) (hammer2chain.CID, error) {
	ip, err := s.GetInode(inum)
	if err != nil {
		return hammer2chain.CIDNone, err
	}
	if ip.CID != hammer2chain.CIDNone {
		if err := s.chains.Load(ip.CID, how); err != nil {
			return hammer2chain.CIDNone, err
		}
	}
	return ip.CID, nil
}

func (s *Store) getInodeChainAndParent(inum uint64, how hammer2ondisk.ResolveHow) (hammer2chain.CID, hammer2chain.CID, error) {
	cid, err := s.GetInodeChain(inum, how)
	if err != nil {
		return hammer2chain.CIDNone, hammer2chain.CIDNone, err
	}
	if cid == hammer2chain.CIDNone {
		return hammer2chain.CIDNone, hammer2chain.CIDNone, nil
	}
	c, err := s.chains.Get(cid)
	if err != nil {
		return hammer2chain.CIDNone, hammer2chain.CIDNone, err
	}
	pcid := c.PCID
	if pcid != hammer2chain.CIDNone {
		if err := s.chains.Load(pcid, how); err != nil {
			return hammer2chain.CIDNone, hammer2chain.CIDNone, err
		}
	}
	return pcid, cid, nil
}

// findInodeChain is the original reader's find_inode_chain: reuse an
// already-registered inode's chain if present, otherwise walk down
// from PFS_ROOT by key == inum.
func (s *Store) findInodeChain(inum uint64) (hammer2chain.CID, hammer2chain.CID, error) {
	if _, ok := s.nmap[inum]; ok {
		pcid, cid, err := s.getInodeChainAndParent(inum, 0)
		if err != nil {
			return hammer2chain.CIDNone, hammer2chain.CIDNone, err
		}
		if cid != hammer2chain.CIDNone {
			return pcid, cid, nil
		}
	}
	pcid, err := s.GetInodeChain(hammer2ondisk.InumPFSRoot, 0)
	if err != nil {
		return hammer2chain.CIDNone, hammer2chain.CIDNone, err
	}
	if pcid == hammer2chain.CIDNone {
		return hammer2chain.CIDNone, hammer2chain.CIDNone, fmt.Errorf("%w: hammer2inode: findInodeChain: PFS_ROOT not resident", hammer2err.EIO)
	}
	pcid, cid, _, err := s.chains.LookupChain(pcid, inum, inum, 0)
	if err != nil {
		return hammer2chain.CIDNone, hammer2chain.CIDNone, err
	}
	if cid != hammer2chain.CIDNone {
		c, err := s.chains.Get(cid)
		if err != nil {
			return hammer2chain.CIDNone, hammer2chain.CIDNone, err
		}
		if c.Resident() {
			if ip := c.InodeData(); ip != nil && ip.Meta.Inum != inum {
				return hammer2chain.CIDNone, hammer2chain.CIDNone, fmt.Errorf(
					"%w: hammer2inode: findInodeChain: looked up inum %#x, got %#x", hammer2err.EINVAL, inum, ip.Meta.Inum)
			}
		}
	}
	return pcid, cid, nil
}

// Nresolve implements spec.md §4.8's nresolve: "." stays, ".." follows
// meta.iparent masked by DirhashUserMsk, anything else hashes the name
// and scans the directory's dirhash bucket for an INODE/DIRENT match.
func (s *Store) Nresolve(dinum uint64, name string) (uint64, error) {
	if dinum == hammer2ondisk.InumSupRoot {
		return 0, fmt.Errorf("%w: hammer2inode: Nresolve: cannot resolve through SUP_ROOT", hammer2err.EINVAL)
	}
	switch name {
	case ".":
		return dinum, nil
	case "..":
		ip, err := s.GetInode(dinum)
		if err != nil {
			return 0, err
		}
		return ip.Meta.IParent & hammer2ondisk.DirhashUserMsk, nil
	default:
		return s.nresolveLookup(dinum, name)
	}
}

func (s *Store) nresolveLookup(dinum uint64, name string) (uint64, error) {
	pcid, err := s.GetInodeChain(dinum, hammer2ondisk.ResolveAlways)
	if err != nil {
		return 0, err
	}
	if pcid == hammer2chain.CIDNone {
		return 0, fmt.Errorf("%w: hammer2inode: nresolveLookup: dir inum %d not resident", hammer2err.EIO, dinum)
	}
	lhc := hammer2ondisk.Dirhash([]byte(name))
	keyEnd := lhc | hammer2ondisk.LOMask

	pcid, cid, _, err := s.chains.LookupChain(pcid, lhc, keyEnd, hammer2chain.LookupAlways)
	if err != nil {
		return 0, err
	}
	for cid != hammer2chain.CIDNone {
		c, err := s.chains.Get(cid)
		if err != nil {
			return 0, err
		}
		if s.chains.MatchName(c, name) {
			break
		}
		pcid, cid, _, err = s.chains.GetNextChain(pcid, cid, keyEnd, hammer2chain.LookupAlways)
		if err != nil {
			return 0, err
		}
	}
	if cid == hammer2chain.CIDNone {
		return 0, fmt.Errorf("%w: hammer2inode: Nresolve: %q not found in inum %d", hammer2err.ENOENT, name, dinum)
	}

	c, err := s.chains.Get(cid)
	if err != nil {
		return 0, err
	}
	if c.Bref.Type == hammer2ondisk.BlockrefTypeDirent {
		dh := hammer2ondisk.DecodeDirentHead(c.Bref.Embed)
		_, cid, err = s.findInodeChain(dh.Inum)
		if err != nil {
			return 0, err
		}
		if cid == hammer2chain.CIDNone {
			return 0, fmt.Errorf("%w: hammer2inode: Nresolve: dirent target inum %#x not found", hammer2err.ENOENT, dh.Inum)
		}
	}
	inum, _, err := s.SetInodeFromChain(cid)
	return inum, err
}

// NresolvePath implements spec.md §4.8's nresolve_path: iterate
// Nresolve over slash-separated components starting at PFS_ROOT.
func (s *Store) NresolvePath(path string) (uint64, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: hammer2inode: NresolvePath: empty path", hammer2err.EINVAL)
	}
	inum := uint64(hammer2ondisk.InumPFSRoot)
	for _, comp := range splitPath(path) {
		var err error
		inum, err = s.Nresolve(inum, comp)
		if err != nil {
			return 0, err
		}
	}
	return inum, nil
}

// splitPath splits a slash-separated path into non-empty components,
// mirroring a POSIX path-walk's treatment of repeated/leading/trailing
// slashes.
func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// Dirent is one entry produced by Readdir (spec.md §6.2).
type Dirent struct {
	Inum uint64
	Type hammer2ondisk.InodeType
	Name string
}

// Readdir implements spec.md §4.8/§6.2: "." and ".." synthesized
// first, then every INODE/DIRENT child in the directory's key range.
func (s *Store) Readdir(dinum uint64) ([]Dirent, error) {
	ip, err := s.GetInode(dinum)
	if err != nil {
		return nil, err
	}
	if ip.Meta.Type != hammer2ondisk.InodeTypeDirectory {
		return nil, fmt.Errorf("%w: hammer2inode: Readdir: inum %d is not a directory", hammer2err.ENOTDIR, dinum)
	}

	out := []Dirent{
		{Inum: ip.Meta.Inum, Type: hammer2ondisk.InodeTypeDirectory, Name: "."},
		{Inum: ip.Meta.IParent & hammer2ondisk.DirhashUserMsk, Type: hammer2ondisk.InodeTypeDirectory, Name: ".."},
	}

	pcid, err := s.GetInodeChain(dinum, hammer2ondisk.ResolveAlways)
	if err != nil {
		return nil, err
	}
	if pcid == hammer2chain.CIDNone {
		return nil, fmt.Errorf("%w: hammer2inode: Readdir: inum %d not resident", hammer2err.EIO, dinum)
	}

	lkey := uint64(2) | hammer2ondisk.DirhashVisible
	pcid, cid, _, err := s.chains.LookupChain(pcid, lkey, hammer2ondisk.KeyMax, 0)
	if err != nil {
		return nil, err
	}
	for cid != hammer2chain.CIDNone {
		c, err := s.chains.Get(cid)
		if err != nil {
			return nil, err
		}
		switch c.Bref.Type {
		case hammer2ondisk.BlockrefTypeInode:
			ipdata := c.InodeData()
			if ipdata == nil {
				return nil, fmt.Errorf("%w: hammer2inode: Readdir: INODE child has no data", hammer2err.EINVAL)
			}
			name, ok := s.chains.Name(c)
			if !ok {
				return nil, fmt.Errorf("%w: hammer2inode: Readdir: INODE child has no name", hammer2err.EINVAL)
			}
			out = append(out, Dirent{Inum: ipdata.Meta.Inum & hammer2ondisk.DirhashUserMsk, Type: ipdata.Meta.Type, Name: name})
		case hammer2ondisk.BlockrefTypeDirent:
			dh := hammer2ondisk.DecodeDirentHead(c.Bref.Embed)
			name, ok := s.chains.Name(c)
			if !ok {
				return nil, fmt.Errorf("%w: hammer2inode: Readdir: DIRENT child has no name", hammer2err.EINVAL)
			}
			out = append(out, Dirent{Inum: dh.Inum, Type: dh.Type, Name: name})
		default:
			return nil, fmt.Errorf("%w: hammer2inode: Readdir: unexpected child type %s", hammer2err.EINVAL, c.Bref.Type)
		}
		pcid, cid, _, err = s.chains.GetNextChain(pcid, cid, hammer2ondisk.KeyMax, 0)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stat is a POSIX-ish stat record (spec.md §6.2).
type Stat struct {
	Inum    uint64
	IParent uint64
	Type    hammer2ondisk.InodeType
	Mode    uint16
	CTime   uint64
	ATime   uint64
	MTime   uint64
	Uid     uuid.UUID
	Gid     uuid.UUID
	Size    uint64
	Nlinks  uint64
}

// Stat returns inum's metadata.
func (s *Store) Stat(inum uint64) (Stat, error) {
	ip, err := s.GetInode(inum)
	if err != nil {
		return Stat{}, err
	}
	m := ip.Meta
	return Stat{
		Inum: m.Inum, IParent: m.IParent, Type: m.Type, Mode: m.Mode,
		CTime: m.CTime, ATime: m.ATime, MTime: m.MTime,
		Uid: m.Uid, Gid: m.Gid, Size: m.Size, Nlinks: m.Nlinks,
	}, nil
}

// Statfs is the block accounting of spec.md §6.2. It has no inode
// (file) counts: HAMMER2's volume header carries no total inode
// count, and computing one exactly requires a full freemap scan, which
// is an explicit non-goal of this reader.
type Statfs struct {
	BlockSize  uint64
	TotalBytes uint64
	FreeBytes  uint64
}

// Statfs returns allocator-level accounting straight from the mounted
// volume header.
func (s *Store) Statfs() Statfs {
	hdr := s.chains.Header()
	return Statfs{
		BlockSize:  hammer2ondisk.PBufSize,
		TotalBytes: hdr.AllocatorSize,
		FreeBytes:  hdr.AllocatorFree,
	}
}

// Readlink implements spec.md §4.9: pread on a SOFTLINK.
func (s *Store) Readlink(inum uint64) ([]byte, error) {
	ip, err := s.GetInode(inum)
	if err != nil {
		return nil, err
	}
	if ip.Meta.Type != hammer2ondisk.InodeTypeSoftlink {
		return nil, fmt.Errorf("%w: hammer2inode: Readlink: inum %d is not a softlink", hammer2err.EINVAL, inum)
	}
	buf := make([]byte, ip.Meta.Size)
	n, err := s.preadImpl(inum, buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Pread implements spec.md §4.9's pread: PBUFSIZE-aligned reads over a
// REGFILE, synthesizing zero-filled blocks for sparse holes.
func (s *Store) Pread(inum uint64, buf []byte, offset uint64) (uint64, error) {
	ip, err := s.GetInode(inum)
	if err != nil {
		return 0, err
	}
	if ip.Meta.Type == hammer2ondisk.InodeTypeDirectory {
		return 0, fmt.Errorf("%w: hammer2inode: Pread: inum %d is a directory", hammer2err.EISDIR, inum)
	}
	if ip.Meta.Type != hammer2ondisk.InodeTypeRegfile {
		return 0, fmt.Errorf("%w: hammer2inode: Pread: inum %d is not a regular file", hammer2err.EINVAL, inum)
	}
	return s.preadImpl(inum, buf, offset)
}

func (s *Store) preadImpl(inum uint64, buf []byte, offset uint64) (uint64, error) {
	ip, err := s.GetInode(inum)
	if err != nil {
		return 0, err
	}
	ipsize := ip.Meta.Size
	resid := uint64(len(buf))
	var total uint64

	for resid > 0 && offset < ipsize {
		lbase := offset &^ hammer2ondisk.PBufMask
		data, err := s.readBlock(inum, lbase)
		if err != nil {
			return 0, err
		}
		loff := offset - lbase
		n := uint64(hammer2ondisk.PBufSize) - loff
		if n > resid {
			n = resid
		}
		if n > ipsize-offset {
			n = ipsize - offset
		}
		copy(buf[total:total+n], data[loff:loff+n])
		total += n
		offset += n
		resid -= n
	}
	return total, nil
}

// readBlock returns a PBUFSIZE-ish logical block's decompressed
// bytes, or a zero-filled PBUFSIZE block for a sparse hole.
func (s *Store) readBlock(inum, lbase uint64) ([]byte, error) {
	pcid, err := s.GetInodeChain(inum, hammer2ondisk.ResolveAlways)
	if err != nil {
		return nil, err
	}
	if pcid == hammer2chain.CIDNone {
		return nil, fmt.Errorf("%w: hammer2inode: readBlock: inum %d not resident", hammer2err.EIO, inum)
	}
	_, cid, _, err := s.chains.LookupChain(pcid, lbase, lbase, hammer2chain.LookupAlways)
	if err != nil {
		return nil, err
	}
	if cid == hammer2chain.CIDNone {
		return make([]byte, hammer2ondisk.PBufSize), nil
	}
	c, err := s.chains.Get(cid)
	if err != nil {
		return nil, err
	}
	if c.CID == pcid {
		// Direct-data shortcut: the inode chain itself was fed back as
		// the "leaf", meaning the file's content is embedded in the
		// inode block rather than stored externally.
		ipdata := c.InodeData()
		if ipdata == nil {
			return nil, fmt.Errorf("%w: hammer2inode: readBlock: direct-data inode has no data", hammer2err.EINVAL)
		}
		n := ipdata.Meta.Size
		if n > uint64(len(ipdata.DirectData())) {
			n = uint64(len(ipdata.DirectData()))
		}
		return ipdata.DirectData()[:n], nil
	}
	return s.chains.ReadData(cid)
}

// Bmap implements spec.md §4.9's bmap: the raw on-disk offset of the
// block at lbn, in DEV_BSIZE units relative to the containing volume.
func (s *Store) Bmap(inum, lbn uint64) (uint64, error) {
	lbase := lbn * hammer2ondisk.PBufSize
	pcid, err := s.GetInodeChain(inum, hammer2ondisk.ResolveAlways)
	if err != nil {
		return 0, err
	}
	if pcid == hammer2chain.CIDNone {
		return 0, fmt.Errorf("%w: hammer2inode: Bmap: inum %d not resident", hammer2err.EIO, inum)
	}
	_, cid, _, err := s.chains.LookupChain(pcid, lbase, lbase, hammer2chain.LookupAlways)
	if err != nil {
		return 0, err
	}
	if cid == hammer2chain.CIDNone {
		return 0, fmt.Errorf("%w: hammer2inode: Bmap: lbn %d has no physical block", hammer2err.ENOENT, lbn)
	}
	c, err := s.chains.Get(cid)
	if err != nil {
		return 0, err
	}
	off := c.Bref.RawDataOff()
	hdr := s.chains.Header()
	var base uint64
	for i := 0; i < int(hdr.NVolumes) && i < hammer2ondisk.MaxVolumes; i++ {
		if l := hdr.VoluLoff[i]; l <= off && l > base {
			base = l
		}
	}
	return (off - base) / hammer2ondisk.DevBSize, nil
}
