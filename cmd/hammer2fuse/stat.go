// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kusumi/hammer2/lib/textui"
	"github.com/kusumi/hammer2/pkg/hammer2inode"
	"github.com/kusumi/hammer2/pkg/hammer2ops"
)

func newStatCmd(logLevel *textui.LogLevelFlag, mountOpts *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <spec> <path>",
		Short: "print inode metadata for a path, one-shot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, path := args[0], args[1]
			ctx, fs, err := openFS(cmd.Context(), logLevel, spec, *mountOpts)
			if err != nil {
				return err
			}
			defer fs.Unmount(ctx)

			ops := hammer2ops.New(fs)
			rr, err := ops.NresolvePath(hammer2ops.XopNresolvePathArgs{Path: path})
			if err != nil {
				return err
			}
			sr, err := ops.Stat(hammer2ops.XopStatArgs{Inum: rr.Inum})
			if err != nil {
				return err
			}
			printStat(cmd, sr.Stat)
			return nil
		},
	}
}

func printStat(cmd *cobra.Command, st hammer2inode.Stat) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "inum:    %d\n", st.Inum)
	fmt.Fprintf(out, "parent:  %d\n", st.IParent)
	fmt.Fprintf(out, "type:    %s\n", st.Type)
	fmt.Fprintf(out, "mode:    %#o\n", st.Mode)
	fmt.Fprintf(out, "size:    %d\n", st.Size)
	fmt.Fprintf(out, "nlinks:  %d\n", st.Nlinks)
	fmt.Fprintf(out, "uid:     %s\n", st.Uid)
	fmt.Fprintf(out, "gid:     %s\n", st.Gid)
	fmt.Fprintf(out, "atime:   %d\n", st.ATime)
	fmt.Fprintf(out, "mtime:   %d\n", st.MTime)
	fmt.Fprintf(out, "ctime:   %d\n", st.CTime)
}
