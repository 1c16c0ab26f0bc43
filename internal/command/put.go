// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/meta"
)

var putExamples = [][2]string{
	{"runcache put api-token t0k3n --ttl 600", "cache a string for ten minutes"},
	{"runcache put conn '{\"host\":\"db\",\"port\":5432}' --json", "cache a composite value"},
	{"runcache put session abc123 --sealed", "write into a sealed cache document"},
}

func PutCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "put", putExamples) {
		return nil
	}

	args := cmd.Args().Slice()
	if len(args) != 2 {
		return errors.New("usage: runcache put KEY VALUE [options]")
	}
	key := args[0]

	// VALUE is stored as a plain string unless --json asks for it to be
	// parsed, in which case it lands in its composite shape.
	var value any = args[1]
	if cmd.Bool("json") {
		if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
			return fmt.Errorf("VALUE is not valid JSON: %w", err)
		}
	}

	rc, err := OpenCache(ctx, cmd)
	if err != nil {
		return err
	}

	return rc.Put(key, value, cmd.Int("ttl"))
}

func PutCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "put",
		Usage:     "store a value",
		UsageText: `runcache put KEY VALUE [options]`,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "parse VALUE as JSON instead of storing it as a string",
				HideDefault: true,
			},
		}, NewCacheFlags("put")...),
		Action: PutCommandAction,
		Meta:   meta,
	}).Build()
}
