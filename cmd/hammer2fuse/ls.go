// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kusumi/hammer2/lib/textui"
	"github.com/kusumi/hammer2/pkg/hammer2ops"
)

func newLsCmd(logLevel *textui.LogLevelFlag, mountOpts *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <spec> <path>",
		Short: "list a directory's entries, one-shot",
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
			dr, err := ops.Readdir(hammer2ops.XopReaddirArgs{DirInum: rr.Inum})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range dr.Entries {
				fmt.Fprintf(out, "%10d  %-8s  %s\n", e.Inum, e.Type, e.Name)
			}
			return nil
		},
	}
}
