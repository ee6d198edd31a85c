// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hammer2volume is the volume set: the collection of backing
// device/file paths that together hold one HAMMER2 volume, and the
// address translation between a global (volume-set-relative) offset
// and a concrete (volume, volume-relative offset) pair.
package hammer2volume

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/datawire/dlib/derror"
	"golang.org/x/sys/unix"

	"github.com/kusumi/hammer2/lib/diskio"
	"github.com/kusumi/hammer2/pkg/hammer2err"
	"github.com/kusumi/hammer2/pkg/hammer2ondisk"
)

// PhysicalAddr is a byte offset relative to the start of a single
// backing device/file.
type PhysicalAddr int64

// GlobalAddr is a byte offset relative to the start of the volume
// set: Volume.Loff + a PhysicalAddr within that volume.
type GlobalAddr uint64

// Volume is one backing device or regular file contributing to the
// volume set, along with the slot of its header that was selected as
// newest (spec.md §4.1).
type Volume struct {
	Path     string
	ID       uint32
	Loff     uint64 // this volume's base offset within the global address space
	FileSize int64
	Header   hammer2ondisk.VolumeData

	f *os.File
}

var _ diskio.File[PhysicalAddr] = (*Volume)(nil)

func (v *Volume) ReadAt(p []byte, off PhysicalAddr) (int, error) {
	return v.f.ReadAt(p, int64(off))
}

// Size implements diskio.File.
func (v *Volume) Size() (PhysicalAddr, error) { return PhysicalAddr(v.FileSize), nil }

// Set is the opened, validated multi-device volume set (spec.md
// §4.1). Volumes is sorted by VoluID. Header is the chosen newest
// header, read from whichever volume carried it.
type Set struct {
	Volumes []*Volume
	Header  hammer2ondisk.VolumeData
	Label   string
}

// ParseSpec splits a colon-separated device/file specification with
// an optional "@label" suffix (default label "DATA", per spec.md
// §4.10) into the list of paths and the label.
func ParseSpec(spec string) (paths []string, label string) {
	label = "DATA"
	if i := strings.LastIndexByte(spec, '@'); i >= 0 {
		label = spec[i+1:]
		spec = spec[:i]
	}
	for _, p := range strings.Split(spec, ":") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, label
}

// classify rejects anything that is not a regular file, block device,
// or character device (spec.md §4.1).
func classify(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := fi.Mode()
	if mode.IsRegular() {
		return nil
	}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fmt.Errorf("hammer2volume: stat %q: %w", path, err)
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFBLK, unix.S_IFCHR:
		return nil
	default:
		return fmt.Errorf("hammer2volume: %q is not a regular file or device", path)
	}
}

// selectHeader scans the well-known header zone candidates of one
// open volume file and returns the newest one that passes all three
// embedded iSCSI-CRC32 checks, per spec.md §4.1/§6.1.
func selectHeader(f *os.File, size int64) (hammer2ondisk.VolumeData, error) {
	var (
		best    hammer2ondisk.VolumeData
		haveAny bool
	)
	buf := make([]byte, hammer2ondisk.VolumeBytes)
	for _, zone := range hammer2ondisk.HeaderZoneNumbers {
		off := zone * hammer2ondisk.ZoneBytes
		if off+hammer2ondisk.VolumeBytes > size {
			continue
		}
		if _, err := f.ReadAt(buf, off); err != nil {
			continue
		}
		if hammer2ondisk.IsReverseEndian(buf) {
			return hammer2ondisk.VolumeData{}, fmt.Errorf("hammer2volume: %s: reverse-endian volume not supported", f.Name())
		}
		vd, err := hammer2ondisk.DecodeVolumeData(buf)
		if err != nil || vd.Magic != hammer2ondisk.MagicLE {
			continue // CRC mismatch or bad magic: not a valid candidate
		}
		if !haveAny || vd.MirrorTID > best.MirrorTID {
			best = vd
			haveAny = true
		}
	}
	if !haveAny {
		return hammer2ondisk.VolumeData{}, fmt.Errorf("hammer2volume: %s: no valid header slot found", f.Name())
	}
	return best, nil
}

// Open opens and validates every path in spec (spec.md §4.1),
// returning the assembled volume set and the mount label parsed out
// of spec's optional "@label" suffix.
func Open(spec string) (*Set, error) {
	paths, label := ParseSpec(spec)
	if len(paths) == 0 {
		return nil, fmt.Errorf("hammer2volume: empty volume specification")
	}

	var (
		volumes []*Volume
		errs    derror.MultiError
		first   hammer2ondisk.VolumeData
		haveFirst bool
	)
	for _, path := range paths {
		if err := classify(path); err != nil {
			errs = append(errs, err)
			continue
		}
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		size, err := f.Seek(0, os.SEEK_END)
		if err != nil {
			errs = append(errs, err)
			_ = f.Close()
			continue
		}
		hdr, err := selectHeader(f, size)
		if err != nil {
			errs = append(errs, err)
			_ = f.Close()
			continue
		}
		if hdr.VoluID >= hammer2ondisk.MaxVolumes {
			errs = append(errs, fmt.Errorf("hammer2volume: %s: volu_id %d out of range", path, hdr.VoluID))
			_ = f.Close()
			continue
		}
		if !haveFirst {
			first = hdr
			haveFirst = true
		} else if hdr.Version != first.Version || hdr.NVolumes != first.NVolumes ||
			hdr.FSID != first.FSID || hdr.FSType != first.FSType {
			errs = append(errs, fmt.Errorf("hammer2volume: %s: header does not match first volume", path))
			_ = f.Close()
			continue
		}
		volumes = append(volumes, &Volume{
			Path:     path,
			ID:       hdr.VoluID,
			Loff:     hdr.VoluLoff[hdr.VoluID],
			FileSize: size,
			Header:   hdr,
			f:        f,
		})
	}
	if errs != nil {
		closeAll(volumes)
		return nil, errs
	}

	sort.Slice(volumes, func(i, j int) bool { return volumes[i].ID < volumes[j].ID })

	if err := checkInvariants(volumes, first); err != nil {
		closeAll(volumes)
		return nil, err
	}

	newest := volumes[0].Header
	for _, v := range volumes[1:] {
		if v.Header.MirrorTID > newest.MirrorTID {
			newest = v.Header
		}
	}

	return &Set{Volumes: volumes, Header: newest, Label: label}, nil
}

func closeAll(volumes []*Volume) {
	for _, v := range volumes {
		_ = v.f.Close()
	}
}

// checkInvariants enforces the single-volume-v1 / multi-volume-v2
// layout rules of spec.md §4.1: either exactly one volume (legacy
// single-volume format), or a contiguous, freemap-level1-aligned
// multi-volume layout with every volu_id in [0, nvolumes) present
// exactly once.
func checkInvariants(volumes []*Volume, first hammer2ondisk.VolumeData) error {
	n := int(first.NVolumes)
	if n <= 0 {
		return fmt.Errorf("hammer2volume: nvolumes must be positive, got %d", n)
	}
	if n == 1 {
		if len(volumes) != 1 {
			return fmt.Errorf("hammer2volume: header declares nvolumes=1 but %d volume(s) opened", len(volumes))
		}
		return nil
	}
	if len(volumes) != n {
		return fmt.Errorf("hammer2volume: header declares nvolumes=%d but %d volume(s) opened", n, len(volumes))
	}
	var expectedLoff uint64
	for i, v := range volumes {
		if int(v.ID) != i {
			return fmt.Errorf("hammer2volume: volu_id sequence is not contiguous from 0: volume[%d].volu_id=%d", i, v.ID)
		}
		if v.Loff != expectedLoff {
			return fmt.Errorf("hammer2volume: volume %d offset %d is not contiguous (want %d)", v.ID, v.Loff, expectedLoff)
		}
		const freemapLevel1Size = 1 << 30 // HAMMER2_FREEMAP_LEVEL1_SIZE-equivalent alignment unit
		if uint64(v.FileSize)%freemapLevel1Size != 0 {
			return fmt.Errorf("hammer2volume: volume %d size %d is not freemap-level1 aligned", v.ID, v.FileSize)
		}
		expectedLoff += uint64(v.FileSize)
	}
	return nil
}

// Close releases every backing file descriptor.
func (s *Set) Close() error {
	var errs derror.MultiError
	for _, v := range s.Volumes {
		if err := v.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	return nil
}

// GetVolume returns the volume whose [Loff, Loff+Size) range contains
// the given global offset (spec.md §4.1's get_volume).
func (s *Set) GetVolume(global GlobalAddr) (*Volume, error) {
	off := uint64(global)
	for _, v := range s.Volumes {
		if off >= v.Loff && off < v.Loff+uint64(v.FileSize) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: hammer2volume: no volume covers global offset %d", hammer2err.ENODEV, off)
}

// Pread reads size bytes at the given volume-relative offset from v.
// offset must be aligned to DevBSize (spec.md §4.1).
func (s *Set) Pread(v *Volume, size int, offset PhysicalAddr) ([]byte, error) {
	if int64(offset)%hammer2ondisk.DevBSize != 0 {
		return nil, fmt.Errorf("%w: hammer2volume: offset %d not aligned to %d", hammer2err.EINVAL, offset, hammer2ondisk.DevBSize)
	}
	buf := make([]byte, size)
	if _, err := v.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("%w: hammer2volume: pread: %v", hammer2err.EIO, err)
	}
	return buf, nil
}

// ReadMedia translates a blockref's data_off into (volume, io_base,
// io_bytes) and reads the covering power-of-two-sized I/O block,
// per spec.md §4.1's read_media: io_bytes is the smallest power of
// two >= bytes for which the aligned [io_base, io_base+io_bytes) holds
// the whole block; a block needing more than PBUFSIZE is rejected.
func (s *Set) ReadMedia(bref *hammer2ondisk.Blockref, bytes int) ([]byte, error) {
	if bytes <= 0 {
		return nil, fmt.Errorf("%w: hammer2volume: ReadMedia: non-positive size %d", hammer2err.EINVAL, bytes)
	}
	global := bref.RawDataOff()
	ioBytes := 1
	for ioBytes < bytes {
		ioBytes <<= 1
	}
	ioBase := global &^ uint64(ioBytes-1)
	for ioBytes <= hammer2ondisk.PBufSize && global+uint64(bytes) > ioBase+uint64(ioBytes) {
		ioBytes <<= 1
		ioBase = global &^ uint64(ioBytes-1)
	}
	if ioBytes > hammer2ondisk.PBufSize {
		return nil, fmt.Errorf("%w: hammer2volume: ReadMedia: io size %d exceeds PBUFSIZE", hammer2err.EINVAL, ioBytes)
	}

	v, err := s.GetVolume(GlobalAddr(ioBase))
	if err != nil {
		return nil, err
	}
	volOff := PhysicalAddr(ioBase - v.Loff)
	raw, err := s.Pread(v, ioBytes, volOff)
	if err != nil {
		return nil, err
	}
	start := global - ioBase
	return raw[start : start+uint64(bytes)], nil
}
