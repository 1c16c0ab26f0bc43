// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/meta"
	"github.com/staranto/runcachego/internal/server"
)

// DefaultServeAddr is where the coordination service listens when no --addr
// is given.
const DefaultServeAddr = ":8267"

var serveExamples = [][2]string{
	{"runcache serve", "host the coordination service on the default address"},
	{"runcache serve --addr :9000 --token s3cr3t", "custom port with bearer auth"},
}

func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "serve", serveExamples) {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []server.Option
	if token := cmd.String("token"); token != "" {
		opts = append(opts, server.WithToken(token))
	}

	return server.New(opts...).ListenAndServe(ctx, cmd.String("addr"))
}

func ServeCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "serve",
		Usage:     "host the coordination service",
		UsageText: `runcache serve [options]`,
		Flags: []cli.Flag{
			NameSpacedValueChainFlagFromConfigFile("serve", cfg.Source, &cli.StringFlag{
				Name:  "addr",
				Usage: "listen address",
				Value: DefaultServeAddr,
			}),
			NameSpacedValueChainFlagFromConfigFile("serve", cfg.Source, &cli.StringFlag{
				Name:  "token",
				Usage: "require this bearer token on every request",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("RUNCACHE_TOKEN"),
				),
			}),
		},
		Action: ServeCommandAction,
		Meta:   meta,
	}).Build()
}
