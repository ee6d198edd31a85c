// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"sync/atomic"

	"github.com/datawire/dlib/dcontext"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/cobra"

	"github.com/kusumi/hammer2/lib/textui"
)

func newMountCmd(logLevel *textui.LogLevelFlag, mountOpts *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mount <spec> <mountpoint>",
		Short: "mount a HAMMER2 volume set read-only via FUSE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, mountpoint := args[0], args[1]
			ctx, fs, err := openFS(cmd.Context(), logLevel, spec, *mountOpts)
			if err != nil {
				return err
			}
			defer func() {
				if err := fs.Unmount(ctx); err != nil {
					dlog.Errorf(ctx, "hammer2fuse: unmount: %v", err)
				}
			}()

			h2fs := newFuseFS(fs)
			cfg := &fuse.MountConfig{
				FSName:   spec,
				Subtype:  "hammer2",
				ReadOnly: true,
			}
			return fuseMount(ctx, mountpoint, fuseutil.NewFileSystemServer(h2fs), cfg)
		},
	}
}

// fuseMount mounts server at mountpoint and blocks until the mount is
// torn down, the way the teacher's lib/btrfsprogs/btrfsinspect.MountRO
// drives github.com/jacobsa/fuse: one goroutine group with a dedicated
// unmount-on-cancellation worker alongside the blocking mount/serve
// worker.
func fuseMount(ctx context.Context, mountpoint string, server fuse.Server, cfg *fuse.MountConfig) error {
	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{ShutdownOnNonError: true})
	var mounted uint32 = 1
	grp.Go("unmount", func(ctx context.Context) error {
		<-ctx.Done()
		var err error
		for atomic.LoadUint32(&mounted) != 0 {
			if _err := fuse.Unmount(mountpoint); _err == nil {
				return nil
			} else {
				err = _err
			}
		}
		return err
	})
	grp.Go("mount", func(ctx context.Context) error {
		defer atomic.StoreUint32(&mounted, 0)

		cfg.OpContext = ctx
		cfg.ErrorLogger = dlog.StdLogger(ctx, dlog.LogLevelError)
		cfg.DebugLogger = dlog.StdLogger(ctx, dlog.LogLevelDebug)

		mh, err := fuse.Mount(mountpoint, server, cfg)
		if err != nil {
			return err
		}
		dlog.Infof(ctx, "hammer2fuse: mounted %q", mountpoint)
		return mh.Join(dcontext.HardContext(ctx))
	})
	return grp.Wait()
}
