// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/coord"
	"github.com/staranto/runcachego/internal/differ"
	"github.com/staranto/runcachego/internal/meta"
)

var diffExamples = [][2]string{
	{"runcache diff", "drift between the live slot and the durable document"},
	{"runcache diff file /tmp/other.json", "durable document against another document"},
	{"runcache diff slot s3://bucket/run.json", "live slot against a shared S3 document"},
}

func DiffCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "diff", diffExamples) {
		return nil
	}

	// A spec is the word slot, the word file, or a document path. Zero or one
	// specs pad out to the drift view, slot against file.
	specs := cmd.Args().Slice()
	switch len(specs) {
	case 0:
		specs = []string{"slot", "file"}
	case 1:
		specs = append(specs, "file")
	case 2:
	default:
		return errors.New("usage: runcache diff [A [B]] [options]")
	}

	co, err := coord.New(ctx, cmd)
	if err != nil {
		return err
	}

	docs := make([][]byte, 0, len(specs))
	for _, spec := range specs {
		doc, err := snapshotDoc(ctx, cmd, co, spec)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	return differ.Diff(ctx, cmd, docs)
}

// snapshotDoc materializes one diff source. The slot that no worker has
// initialized diffs as an empty document.
func snapshotDoc(ctx context.Context, cmd *cli.Command, co coord.Coordinator, spec string) ([]byte, error) {
	switch spec {
	case "slot":
		snap, initialized, err := co.GetSlot(cmd.String("slot"))
		if err != nil {
			return nil, err
		}
		if !initialized {
			snap = cache.Snapshot{}
		}
		return snap.Marshal()
	case "file":
		spec = cmd.String("file")
	}

	st, err := OpenStore(ctx, cmd, co, spec)
	if err != nil {
		return nil, err
	}
	snap, err := st.Load()
	if err != nil {
		return nil, err
	}
	return snap.Marshal()
}

func DiffCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "diff",
		Usage:     "diff two cache snapshots",
		UsageText: `runcache diff [A [B]] [options]`,
		Flags:     NewCacheFlags("diff"),
		Action:    DiffCommandAction,
		Meta:      meta,
	}).Build()
}
