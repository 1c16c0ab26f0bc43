// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/meta"
)

var resetExamples = [][2]string{
	{"runcache reset", "empty the cache for every worker"},
	{"runcache reset --file /tmp/shared.json", "empty a specific cache document"},
}

func ResetCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "reset", resetExamples) {
		return nil
	}

	if cmd.Args().Len() != 0 {
		return errors.New("usage: runcache reset [options]")
	}

	rc, err := OpenCache(ctx, cmd)
	if err != nil {
		return err
	}

	return rc.Reset()
}

func ResetCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "reset",
		Usage:     "empty the cache",
		UsageText: `runcache reset [options]`,
		Flags:     NewCacheFlags("reset"),
		Action:    ResetCommandAction,
		Meta:      meta,
	}).Build()
}
