// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/meta"
	"github.com/staranto/runcachego/internal/runfile"
)

var runExamples = [][2]string{
	{"runcache run api-token", "run a runfile task, caching its trimmed stdout"},
	{"runcache run api-token --refresh", "drop the cached value and recompute"},
	{"runcache run date +%s --ttl 5", "cache a literal command for five seconds"},
}

func RunCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "run", runExamples) {
		return nil
	}

	args := cmd.Args().Slice()
	if len(args) < 1 {
		return errors.New("usage: runcache run NAME [ARGS...] [options]")
	}
	name := args[0]
	extra := args[1:]

	argv, taskEnv, ttl, err := resolveRun(cmd, name, extra)
	if err != nil {
		return err
	}
	log.Debugf("running %v with ttl %d", argv, ttl)

	rc, err := OpenCache(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("refresh") {
		if err := rc.Remove(cache.DeriveKey(name, extra...)); err != nil {
			return err
		}
	}

	value, err := rc.ComputeAndCache(name, extra, func() (any, error) {
		return execute(ctx, argv, taskEnv)
	}, ttl)
	if err != nil {
		return err
	}

	out, err := renderValue(value)
	if err != nil {
		return err
	}
	fmt.Println(out)

	return nil
}

// resolveRun turns NAME into something executable. A runfile task wins when
// one matches; otherwise NAME and the extra args are the literal command. The
// --ttl flag, when given explicitly, overrides the task's own TTL.
func resolveRun(cmd *cli.Command, name string, extra []string) (argv []string, taskEnv map[string]string, ttl int, err error) {
	ttl = cmd.Int("ttl")

	rf, err := runfile.Load(cmd.String("runfile"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no runfile at %s, treating %s as a literal command", cmd.String("runfile"), name)
			return append([]string{name}, extra...), nil, ttl, nil
		}
		return nil, nil, 0, err
	}

	task, err := rf.Task(name, cmd.String("env"), extra)
	if err != nil {
		if errors.Is(err, runfile.ErrTaskNotFound) {
			log.Debugf("no task %s, treating it as a literal command", name)
			return append([]string{name}, extra...), nil, ttl, nil
		}
		return nil, nil, 0, err
	}

	if !cmd.IsSet("ttl") {
		ttl = task.TTL
	}
	return task.Command, task.Env, ttl, nil
}

// execute runs argv and returns its trimmed stdout. Stderr passes through to
// the worker's own stderr so failures stay diagnosable.
func execute(ctx context.Context, argv []string, env map[string]string) (any, error) {
	if len(argv) == 0 {
		return nil, errors.New("nothing to execute")
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Env = os.Environ()
	for k, v := range env {
		c.Env = append(c.Env, k+"="+v)
	}
	c.Stderr = os.Stderr

	out, err := c.Output()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", argv[0], err)
	}

	return strings.TrimSpace(string(out)), nil
}

func RunCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "run",
		Usage:     "run a command through the cache",
		UsageText: `runcache run NAME [ARGS...] [options]`,
		Flags:     append(NewRunFlags("run"), NewCacheFlags("run")...),
		Action:    RunCommandAction,
		Meta:      meta,
	}).Build()
}
