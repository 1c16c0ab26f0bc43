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

var rmExamples = [][2]string{
	{"runcache rm kw-api_token-prod", "drop a single key"},
	{"runcache rm session --file /tmp/shared.json", "drop a key from a specific cache document"},
}

func RmCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "rm", rmExamples) {
		return nil
	}

	args := cmd.Args().Slice()
	if len(args) != 1 {
		return errors.New("usage: runcache rm KEY [options]")
	}

	rc, err := OpenCache(ctx, cmd)
	if err != nil {
		return err
	}

	// Removing an absent key is a no-op, not an error.
	return rc.Remove(args[0])
}

func RmCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "rm",
		Usage:     "remove a key",
		UsageText: `runcache rm KEY [options]`,
		Flags:     NewCacheFlags("rm"),
		Action:    RmCommandAction,
		Meta:      meta,
	}).Build()
}
