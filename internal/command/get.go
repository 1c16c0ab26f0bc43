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

	"github.com/staranto/runcachego/internal/driller"
	"github.com/staranto/runcachego/internal/meta"
)

var getExamples = [][2]string{
	{"runcache get kw-api_token-prod", "print the cached value for a key"},
	{"runcache get build --path version.sha", "drill into a composite value"},
	{"runcache get session --file /tmp/shared.json", "read a specific cache document"},
}

func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "get", getExamples) {
		return nil
	}

	args := cmd.Args().Slice()
	if len(args) != 1 {
		return errors.New("usage: runcache get KEY [options]")
	}
	key := args[0]

	rc, err := OpenCache(ctx, cmd)
	if err != nil {
		return err
	}

	value, err := rc.Retrieve(key)
	if err != nil {
		return err
	}

	if path := cmd.String("path"); path != "" {
		doc, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value for %s: %w", key, err)
		}
		result := driller.Driller(string(doc), path)
		if !result.Exists() {
			return fmt.Errorf("no value at path %s under %s", path, key)
		}
		fmt.Println(result.String())
		return nil
	}

	out, err := renderValue(value)
	if err != nil {
		return err
	}
	fmt.Println(out)

	return nil
}

func GetCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "get",
		Usage:     "print a cached value",
		UsageText: `runcache get KEY [options]`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "dotted path into a composite value",
			},
		}, NewCacheFlags("get")...),
		Action: GetCommandAction,
		Meta:   meta,
	}).Build()
}
