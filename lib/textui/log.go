// Copyright (C) 2019-2022  Ambassador Labs
// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
// Copyright (C) 2026  Tomohiro Kusumi <kusumi.tomohiro@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0

// Package textui provides the logging conventions shared by the
// hammer2 packages: a context-carried dlog.Logger, and a pflag.Value
// for selecting its level from the command line.
package textui

import (
	"context"
	"fmt"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// LogLevelFlag adapts dlog.LogLevel to pflag.Value, so a level flag
// such as --loglevel can be registered directly on a cobra command.
type LogLevelFlag struct {
	Level dlog.LogLevel
}

var _ pflag.Value = (*LogLevelFlag)(nil)

func (*LogLevelFlag) Type() string { return "loglevel" }

func (lvl *LogLevelFlag) Set(str string) error {
	switch strings.ToLower(str) {
	case "error":
		lvl.Level = dlog.LogLevelError
	case "warn", "warning":
		lvl.Level = dlog.LogLevelWarn
	case "info":
		lvl.Level = dlog.LogLevelInfo
	case "debug":
		lvl.Level = dlog.LogLevelDebug
	case "trace":
		lvl.Level = dlog.LogLevelTrace
	default:
		return fmt.Errorf("invalid log level: %q", str)
	}
	return nil
}

func (lvl *LogLevelFlag) String() string {
	return strings.ToLower(lvl.Level.String())
}

// NewContext installs a logrus-backed dlog.Logger at the given level
// into ctx, the way every hammer2 entrypoint (mount, CLI subcommands)
// wants to start.
func NewContext(ctx context.Context, lvl dlog.LogLevel) context.Context {
	logger := logrus.New()
	logger.SetLevel(logrus.Level(lvl))
	return dlog.WithLogger(ctx, dlog.WrapLogrus(logger))
}
