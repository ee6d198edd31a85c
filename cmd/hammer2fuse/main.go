// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command hammer2fuse is the options & CLI glue of spec.md §2/§6.2/§6.3:
// a cobra command tree that mounts a HAMMER2 volume set read-only,
// either as a FUSE filesystem or as a handful of one-shot inspection
// subcommands built directly on the Operation layer.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/kusumi/hammer2/lib/textui"
	"github.com/kusumi/hammer2/pkg/hammer2fs"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hammer2fuse: error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	logLevel := &textui.LogLevelFlag{Level: dlog.LogLevelInfo}
	var mountOpts string

	root := &cobra.Command{
		Use:           "hammer2fuse",
		Short:         "read-only HAMMER2 filesystem reader",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.Var(logLevel, "loglevel", "log level (error, warn, info, debug, trace)")
	pf.StringVarP(&mountOpts, "options", "o", "", "comma-separated mount options (nodatacache, cidalloc=linear|bitmap, debug, noauto)")

	root.AddCommand(newMountCmd(logLevel, &mountOpts))
	root.AddCommand(newStatCmd(logLevel, &mountOpts))
	root.AddCommand(newLsCmd(logLevel, &mountOpts))

	return root
}

// openFS parses mountOpts, honors the "debug" option by raising the
// log level, and mounts spec, returning a context carrying the
// configured logger alongside the mounted handle.
func openFS(ctx context.Context, logLevel *textui.LogLevelFlag, spec string, mountOpts string) (context.Context, *hammer2fs.FS, error) {
	opt, err := hammer2fs.ParseOptions(mountOpts)
	if err != nil {
		return nil, nil, err
	}
	lvl := logLevel.Level
	if opt.Debug {
		lvl = dlog.LogLevelDebug
	}
	ctx = textui.NewContext(ctx, lvl)

	fs, err := hammer2fs.Mount(ctx, spec, opt)
	if err != nil {
		return nil, nil, err
	}
	return ctx, fs, nil
}
